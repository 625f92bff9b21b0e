package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"strings"

	ftp2http "github.com/apnarm/ftp2http"
)

// runHash prints a password hash suitable for a "user: name:hash" line.
func runHash(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	fs.SetOutput(stderr)
	algorithm := fs.String("algorithm", "bcrypt", "bcrypt or argon2id")
	cost := fs.Int("cost", 0, "bcrypt cost (default from gateway defaults)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	pw := strings.Join(fs.Args(), " ")
	if pw == "" {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			fmt.Fprintln(stderr, err)
			return 1
		}
		pw = strings.TrimRight(line, "\r\n")
	}
	if pw == "" {
		fmt.Fprintln(stderr, "empty password")
		return 2
	}

	cfg := ftp2http.DefaultConfig().Password
	cfg.Algorithm = *algorithm
	if *cost > 0 {
		cfg.BcryptCost = *cost
	}
	hasher, err := ftp2http.NewPasswordHasher(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	encoded, err := hasher.Hash(pw)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintln(stdout, encoded)
	return 0
}
