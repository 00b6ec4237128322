// Command questions answers natural-language questions from a directory of
// documents on the terminal.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/setup"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("questions", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file")
	files := fs.Int("files", -1, "number of documents to search (default from config)")
	sentences := fs.Int("sentences", -1, "number of sentences to print (default from config)")
	loop := fs.Bool("loop", false, "keep answering until EOF or an empty line")
	logLevel := fs.String("log-level", "warn", "log level")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: questions [flags] corpus")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: questions [flags] corpus")
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	cfg.Corpus.Dir = fs.Arg(0)
	if *files >= 0 {
		cfg.Retrieval.FileMatches = *files
	}
	if *sentences >= 0 {
		cfg.Retrieval.SentenceMatches = *sentences
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return 1
	}
	logger.SetupWriter(stderr, *logLevel, "text")

	eng, err := setup.Engine(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	in := bufio.NewScanner(stdin)
	in.Buffer(make([]byte, 64*1024), 1<<20)
	for {
		fmt.Fprint(stdout, "Query: ")
		if !in.Scan() {
			fmt.Fprintln(stdout)
			break
		}
		question := strings.TrimSpace(in.Text())
		if *loop && question == "" {
			break
		}
		answer, err := eng.Answer(ctx, question)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		for _, s := range answer.Texts() {
			fmt.Fprintln(stdout, s)
		}
		if !*loop {
			break
		}
	}
	if err := in.Err(); err != nil {
		fmt.Fprintf(stderr, "reading query: %v\n", err)
		return 1
	}
	return 0
}
