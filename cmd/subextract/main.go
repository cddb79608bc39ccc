// Command subextract pulls the subtitle strip out of a video, or joins the
// subtitle bands of existing screenshots, without the queue worker.
//
//	subextract video -crop 0,960,1920,1040 [-points marks.txt] movie.mp4
//	subextract join -y1 0.8 -y2 0.95 shot1.png shot2.png ...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "video":
		err = runVideo(ctx, os.Args[2:], os.Stdout, os.Stderr)
	case "join":
		err = runJoin(ctx, os.Args[2:], os.Stdout, os.Stderr)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  %s video -crop x1,y1,x2,y2 [options] video_file\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s join -y1 ratio -y2 ratio [options] image_files...\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Run a command with -h for its options.\n")
}
