package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/yourname/staticserve/internal/logger"
	"github.com/yourname/staticserve/pkg/deployclient"
)

// main отправляет архивы из аргументов на сервер статики по одному.
func main() {
	url := pflag.StringP("url", "u", getenv("STATICPUSH_URL", "http://localhost:8080"), "server base URL")
	token := pflag.StringP("token", "t", os.Getenv("UPLOAD_TOKEN"), "upload token")
	bearer := pflag.String("jwt", os.Getenv("UPLOAD_JWT"), "bearer JWT")
	retries := pflag.IntP("retries", "r", 3, "retries after the first attempt")
	quiet := pflag.BoolP("quiet", "q", false, "no progress output")
	verbose := pflag.BoolP("verbose", "v", false, "log retries")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] archive.tar[.zst|.gz]...\n", filepath.Base(os.Args[0]))
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []deployclient.Option{
		deployclient.WithToken(*token),
		deployclient.WithBearer(*bearer),
		deployclient.WithRetries(*retries),
	}
	if !*quiet {
		opts = append(opts, deployclient.WithProgress(os.Stdout))
	}
	if *verbose {
		opts = append(opts, deployclient.WithLogger(logger.FromEnv(true)))
	}
	client := deployclient.New(opts...)

	for _, path := range pflag.Args() {
		st, err := os.Stat(path)
		if err != nil {
			fail(err)
		}

		report, err := client.Upload(ctx, *url, deployclient.UploadRequest{
			Name: filepath.Base(path),
			Size: st.Size(),
			Open: func() (io.ReadCloser, error) { return os.Open(path) },
		})
		if err != nil {
			fail(err)
		}

		for _, a := range report.Archives {
			if a.Skipped {
				fmt.Printf("%s: skipped (unknown format)\n", a.Name)
				continue
			}
			fmt.Printf("%s: %d entries, %d bytes\n", a.Name, a.Entries, a.Bytes)
		}
		if report.Reload {
			fmt.Println("server reload requested")
		}
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
