package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

type SMTPNotifier struct {
	host     string
	port     int
	from     string
	fallback string
	logger   *zap.Logger
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier mails failures to the requesting user; requests without an
// address go to fallback instead.
func NewSMTPNotifier(host string, port int, from, fallback string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, fallback: fallback, logger: logger, send: smtp.SendMail}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, userEmail, jobID, sourceKey, errorMsg string) error {
	to := userEmail
	if to == "" {
		to = n.fallback
	}
	if to == "" {
		n.logger.Warn("no recipient for failure notification", zap.String("job_id", jobID))
		return nil
	}

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	msg := failureMessage(n.from, to, jobID, sourceKey, errorMsg)

	if err := n.send(addr, nil, n.from, []string{to}, []byte(msg)); err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("to", to),
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("to", to),
		zap.String("job_id", jobID),
	)
	return nil
}

func failureMessage(from, to, jobID, sourceKey, errorMsg string) string {
	subject := fmt.Sprintf("Subtitle extraction failed [Job %s]", jobID)
	body := strings.Join([]string{
		"Hello,",
		"",
		"Your subtitle extraction job could not be completed.",
		"",
		"Job ID: " + jobID,
		"Source: " + sourceKey,
		"Error: " + errorMsg,
		"",
		"Check the subtitle area and time points, then submit the job again.",
		"",
		"-- Subtitle Extractor",
	}, "\r\n")

	return fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", from, to, subject, body)
}
