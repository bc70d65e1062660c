package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/urfave/cli/v2"

	frontyaml "github.com/frontyaml/go-frontyaml"
)

const (
	appName     = "frontyaml"
	historyFile = ".frontyaml_history"
	promptMain  = ">>> "
	promptCont  = "... "
)

var banner = appName + " interactive parser\nEnter a document, finish with a blank line. Ctrl+C cancels input, Ctrl+D or :quit exits."

func red(s string) string   { return "\x1b[31m" + s + "\x1b[0m" }
func green(s string) string { return "\x1b[32m" + s + "\x1b[0m" }
func blue(s string) string  { return "\x1b[94m" + s + "\x1b[0m" }

func main() {
	app := &cli.App{
		Name:    appName,
		Usage:   "parse and inspect front-matter YAML documents",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "allow-duplicate-keys",
				Usage: "do not report duplicate mapping keys",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "tokens",
				Usage:     "print the token stream of a document",
				ArgsUsage: "[file]",
				Action:    cmdTokens,
			},
			{
				Name:      "parse",
				Usage:     "print the parse tree and diagnostics of a document",
				ArgsUsage: "[file]",
				Action:    cmdParse,
			},
			{
				Name:      "check",
				Usage:     "report diagnostics for files, exit nonzero if any has errors",
				ArgsUsage: "file ...",
				Action:    cmdCheck,
			},
			{
				Name:      "fmt",
				Usage:     "reprint a document in canonical form",
				ArgsUsage: "[file]",
				Action:    cmdFmt,
			},
			{
				Name:      "json",
				Usage:     "convert a document to JSON",
				ArgsUsage: "[file]",
				Action:    cmdJSON,
			},
			{
				Name:   "repl",
				Usage:  "interactively parse documents",
				Action: cmdRepl,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, red(appName+": "+msg))
		}
		os.Exit(1)
	}
}

// readInput returns the named file's content, or stdin when no argument was
// given.
func readInput(c *cli.Context) (name, src string, err error) {
	if c.NArg() == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return "stdin", string(b), nil
	}
	path := c.Args().First()
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	return path, string(b), nil
}

func options(c *cli.Context) frontyaml.ParseOptions {
	return frontyaml.ParseOptions{AllowDuplicateKeys: c.Bool("allow-duplicate-keys")}
}

// parseAny parses src as a front-matter file when it opens with a '---'
// marker line, and as a bare document otherwise. The returned body is empty
// for bare documents.
func parseAny(src string, opts frontyaml.ParseOptions) (root frontyaml.Node, errs []frontyaml.ParseError, body string, hasFM bool) {
	if _, ok := frontyaml.SplitFrontMatter(src); ok {
		root, body = frontyaml.ParseFrontMatter(src, &errs, opts)
		return root, errs, body, true
	}
	root = frontyaml.Parse(src, &errs, opts)
	return root, errs, "", false
}

func cmdTokens(c *cli.Context) error {
	_, src, err := readInput(c)
	if err != nil {
		return err
	}
	for _, tok := range frontyaml.Scan(src) {
		fmt.Printf("[%d:%d) %s\n", tok.Start, tok.End, tok)
	}
	return nil
}

func cmdParse(c *cli.Context) error {
	name, src, err := readInput(c)
	if err != nil {
		return err
	}
	root, errs, body, hasFM := parseAny(src, options(c))
	printDiagnostics(name, src, errs)

	var b strings.Builder
	writeTree(&b, root, 0)
	fmt.Print(b.String())
	if hasFM {
		fmt.Printf("body: %d bytes\n", len(body))
	}

	if len(errs) > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func cmdCheck(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit(fmt.Sprintf("usage: %s check <file> ...", appName), 2)
	}
	opts := options(c)
	bad := 0
	for _, path := range c.Args().Slice() {
		b, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			bad++
			continue
		}
		src := string(b)
		_, errs, _, _ := parseAny(src, opts)
		printDiagnostics(path, src, errs)
		if len(errs) > 0 {
			bad++
		} else {
			fmt.Println(green("ok") + " " + path)
		}
	}
	if bad > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func cmdFmt(c *cli.Context) error {
	name, src, err := readInput(c)
	if err != nil {
		return err
	}
	root, errs, body, hasFM := parseAny(src, options(c))
	if len(errs) > 0 {
		printDiagnostics(name, src, errs)
		return cli.Exit("", 1)
	}
	out, err := frontyaml.Marshal(frontyaml.Fold(root))
	if err != nil {
		return err
	}
	if hasFM {
		fmt.Printf("---\n%s---\n%s", out, body)
		return nil
	}
	fmt.Print(string(out))
	return nil
}

func cmdJSON(c *cli.Context) error {
	name, src, err := readInput(c)
	if err != nil {
		return err
	}
	root, errs, _, _ := parseAny(src, options(c))
	if len(errs) > 0 {
		printDiagnostics(name, src, errs)
		return cli.Exit("", 1)
	}
	out, err := json.MarshalIndent(frontyaml.Fold(root), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func cmdRepl(c *cli.Context) error {
	fmt.Println(banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	opts := options(c)
	for {
		doc, ok := readDocument(ln)
		if !ok {
			fmt.Println()
			return nil
		}
		if strings.TrimSpace(doc) == "" {
			continue
		}
		if strings.TrimSpace(doc) == ":quit" {
			return nil
		}

		var errs []frontyaml.ParseError
		root := frontyaml.Parse(doc, &errs, opts)
		for _, e := range errs {
			line, col := lineCol(doc, e.Start)
			fmt.Fprintln(os.Stderr, red(fmt.Sprintf("%d:%d: %s (%s)", line, col, e.Message, e.Code)))
		}

		var b strings.Builder
		writeTree(&b, root, 0)
		fmt.Println(colorizeTree(b.String()))
		ln.AppendHistory(strings.ReplaceAll(strings.TrimRight(doc, "\n"), "\n", " "))
	}
}

// readDocument collects prompt lines until a blank line submits the
// document. ok is false only on EOF; an aborted prompt yields an empty
// document.
func readDocument(ln *liner.State) (doc string, ok bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", true
		}
		if line == "" {
			if b.Len() == 0 {
				continue
			}
			return b.String(), true
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

// writeTree renders a parse tree, one node per line, children indented.
func writeTree(b *strings.Builder, n frontyaml.Node, indent int) {
	pad := strings.Repeat("  ", indent)
	if n == nil {
		b.WriteString(pad + "(no content)\n")
		return
	}
	switch v := n.(type) {
	case *frontyaml.ScalarNode:
		fmt.Fprintf(b, "%sscalar %s", pad, strconv.Quote(v.Value))
		if v.Format != frontyaml.FormatNone {
			fmt.Fprintf(b, " (%s)", v.Format)
		}
		fmt.Fprintf(b, " [%d:%d)\n", v.Start, v.End)
	case *frontyaml.SequenceNode:
		fmt.Fprintf(b, "%ssequence (%s, %d items) [%d:%d)\n", pad, v.Style, len(v.Items), v.Start, v.End)
		for _, item := range v.Items {
			writeTree(b, item, indent+1)
		}
	case *frontyaml.MapNode:
		fmt.Fprintf(b, "%smapping (%s, %d entries) [%d:%d)\n", pad, v.Style, len(v.Properties), v.Start, v.End)
		for _, p := range v.Properties {
			fmt.Fprintf(b, "%s  %s:\n", pad, strconv.Quote(p.Key.Value))
			writeTree(b, p.Value, indent+2)
		}
	}
}

// colorizeTree paints each rendered line for the repl.
func colorizeTree(tree string) string {
	lines := strings.Split(strings.TrimRight(tree, "\n"), "\n")
	for i, ln := range lines {
		lines[i] = blue(ln)
	}
	return strings.Join(lines, "\n")
}

func printDiagnostics(name, src string, errs []frontyaml.ParseError) {
	for _, e := range errs {
		line, col := lineCol(src, e.Start)
		fmt.Fprintln(os.Stderr, red(fmt.Sprintf("%s:%d:%d: %s (%s)", name, line, col, e.Message, e.Code)))
	}
}

// lineCol converts a byte offset into 1-based line and column numbers.
func lineCol(src string, off int) (line, col int) {
	if off > len(src) {
		off = len(src)
	}
	line = 1 + strings.Count(src[:off], "\n")
	nl := strings.LastIndexByte(src[:off], '\n')
	return line, off - nl
}
