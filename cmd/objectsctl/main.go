/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/suparena/objectstore"
	"github.com/suparena/objectstore/processor"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	verboseFlag = flag.Bool("v", false, "Log debug output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: objectsctl [-v] [-version] <%s> [-format xml|yaml] args...\n",
			strings.Join(processor.Commands(), "|"))
		flag.PrintDefaults()
	}
	flag.Parse()

	if *versionFlag {
		info := objectstore.GetVersionInfo()
		fmt.Printf("objectsctl version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := processor.New(os.Stdout, logger).Run(context.Background(), flag.Args()); err != nil {
		if errors.Is(err, processor.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			flag.Usage()
			os.Exit(2)
		}
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
