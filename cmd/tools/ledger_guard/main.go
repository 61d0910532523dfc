package main

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ledger_guard scans Go and SQL sources and fails when any statement rewrites
// ledger rows. Down migrations are exempt.
// Exit code 0 = ok, 1 = violation, 2 = other error.
func main() {
	roots := os.Args[1:]
	if len(roots) == 0 {
		roots = []string{"internal", "cmd"}
	}
	var violations []string
	for _, root := range roots {
		found, err := scan(root)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ledger_guard error: %v\n", err)
			os.Exit(2)
		}
		violations = append(violations, found...)
	}
	if len(violations) > 0 {
		for _, v := range violations {
			fmt.Fprintf(os.Stderr, "VIOLATION: %s\n", v)
		}
		os.Exit(1)
	}
	fmt.Println("ledger_guard: OK")
}

var reMutation = regexp.MustCompile(`(?i)\b(update\s+ledger_rows|delete\s+from\s+ledger_rows|truncate\s+(table\s+)?ledger_rows)\b`)

func scan(dir string) ([]string, error) {
	var violations []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), "_") {
				return filepath.SkipDir
			}
			return nil
		}
		if !checked(path) {
			return nil
		}
		lines, err := checkFile(path)
		if err != nil {
			return err
		}
		for _, n := range lines {
			violations = append(violations, fmt.Sprintf("%s:%d", path, n))
		}
		return nil
	})
	return violations, err
}

func checked(path string) bool {
	switch {
	case strings.HasSuffix(path, ".down.sql"), strings.HasSuffix(path, "_test.go"):
		return false
	case filepath.Ext(path) == ".sql", filepath.Ext(path) == ".go":
		return true
	}
	return false
}

func checkFile(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	var hits []int
	s := bufio.NewScanner(f)
	for n := 1; s.Scan(); n++ {
		if reMutation.MatchString(s.Text()) {
			hits = append(hits, n)
		}
	}
	return hits, s.Err()
}
