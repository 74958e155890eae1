// Package main implements the csvdb command line interface.
//
// EDUCATIONAL NOTES:
// ------------------
// csvdb runs in one of two modes:
//
//  1. REPL (the default): read SQL from stdin, execute it, print the
//     result, loop. A statement may span several lines and runs once a
//     line ends with ';' (a trailing -- comment is fine). Lines starting with '.' are commands for the
//     REPL itself (.tables, .import, ...), not SQL.
//  2. Server (-serve PORT): expose the same database over HTTP.
//
// Both modes open the database the same way: the manifest named by -db
// lists the tables, and the catalog loads each one with its indexes.

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cabewaldrop/csvdb/internal/catalog"
	"github.com/cabewaldrop/csvdb/internal/export"
	"github.com/cabewaldrop/csvdb/internal/log"
	"github.com/cabewaldrop/csvdb/internal/sql/executor"
	"github.com/cabewaldrop/csvdb/internal/sql/lexer"
	"github.com/cabewaldrop/csvdb/internal/web"
)

const (
	version = "0.3.0"
	banner  = `csvdb %s: a SQL database stored in CSV files
Type '.help' for usage hints or '.quit' to exit.
`
	logLevelEnv = "CSVDB_LOG_LEVEL"
)

// dotCommands are the REPL's own commands.
var dotCommands = map[string]string{
	".help":   "Show this help message",
	".quit":   "Exit the program",
	".exit":   "Exit the program (alias for .quit)",
	".tables": "List all tables",
	".schema": "Show the columns of all tables or of one table: .schema [name]",
	".create": "Create an empty table: .create name col1 col2 ...",
	".import": "Copy a CSV file into the database: .import name path",
	".dump":   "Export a table to a SQLite file: .dump name file",
	".clear":  "Clear the screen",
}

// errQuit ends the REPL.
var errQuit = errors.New("quit")

func main() {
	defaultLevel := "error"
	if env := os.Getenv(logLevelEnv); env != "" {
		defaultLevel = env
	}

	dbPath := flag.String("db", "db.txt", "Path to the database manifest")
	port := flag.Int("serve", 0, "Serve the database over HTTP on this port instead of starting the REPL")
	logLevel := flag.String("log-level", defaultLevel, "Log level: debug, info, warn or error (env "+logLevelEnv+")")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("csvdb version %s\n", version)
		return
	}

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	log.SetLevel(level)

	cat, err := catalog.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}

	if *port != 0 {
		if err := web.NewServer(*port, executor.New(cat)).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	exec := executor.New(cat, executor.AllowPaths(true))
	fmt.Printf(banner, version)
	if tables := exec.GetTables(); len(tables) > 0 {
		fmt.Printf("Loaded %d table(s): %s\n\n", len(tables), strings.Join(tables, ", "))
	}

	if err := repl(os.Stdin, os.Stdout, exec); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

// repl reads statements from in until EOF or .quit.
func repl(in io.Reader, out io.Writer, exec *executor.Executor) error {
	scanner := bufio.NewScanner(in)
	var inputBuffer strings.Builder

	for {
		if inputBuffer.Len() == 0 {
			fmt.Fprint(out, "csvdb> ")
		} else {
			fmt.Fprint(out, "  ...> ")
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			if inputBuffer.Len() > 0 {
				fmt.Fprintf(out, "\nIgnoring incomplete statement: %s", strings.TrimSpace(inputBuffer.String()))
			}
			fmt.Fprintln(out, "\nGoodbye!")
			return nil
		}
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		if inputBuffer.Len() == 0 && strings.HasPrefix(line, ".") {
			if err := handleDotCommand(out, line, exec); errors.Is(err, errQuit) {
				fmt.Fprintln(out, "Goodbye!")
				return nil
			}
			continue
		}

		inputBuffer.WriteString(line)
		if !endsStatement(line) {
			inputBuffer.WriteString("\n")
			continue
		}

		executeSQL(out, inputBuffer.String(), exec)
		inputBuffer.Reset()
	}
}

// endsStatement reports whether the last token of line, comments aside, is
// ';'. Lines the lexer rejects fall back to a plain suffix check so the
// error surfaces on execution.
func endsStatement(line string) bool {
	l := lexer.New(line)
	last := lexer.TokenEOF
	for tok := l.NextToken(); tok.Type != lexer.TokenEOF; tok = l.NextToken() {
		last = tok.Type
	}
	if l.Err() != nil {
		return strings.HasSuffix(line, ";")
	}
	return last == lexer.TokenSemicolon
}

// handleDotCommand processes a REPL command. It returns errQuit for .quit.
func handleDotCommand(out io.Writer, cmd string, exec *executor.Executor) error {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return nil
	}

	switch parts[0] {
	case ".help":
		printHelp(out)

	case ".quit", ".exit":
		return errQuit

	case ".tables":
		tables := exec.GetTables()
		if len(tables) == 0 {
			fmt.Fprintln(out, "No tables found.")
			return nil
		}
		for _, name := range tables {
			fmt.Fprintf(out, "  %s\n", name)
		}

	case ".schema":
		names := parts[1:]
		if len(names) == 0 {
			names = exec.GetTables()
		}
		for _, name := range names {
			showTableSchema(out, name, exec)
		}

	case ".create":
		if len(parts) < 3 {
			fmt.Fprintln(out, "Usage: .create name col1 col2 ...")
			return nil
		}
		if _, err := exec.Catalog().CreateTable(parts[1], parts[2:]); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return nil
		}
		fmt.Fprintf(out, "Created table %s\n", parts[1])

	case ".import":
		if len(parts) != 3 {
			fmt.Fprintln(out, "Usage: .import name path")
			return nil
		}
		tbl, err := exec.Catalog().ImportTable(parts[1], parts[2])
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return nil
		}
		fmt.Fprintf(out, "Imported %d row(s) into %s\n", tbl.Len(), parts[1])

	case ".dump":
		if len(parts) != 3 {
			fmt.Fprintln(out, "Usage: .dump name file")
			return nil
		}
		tbl, ok := exec.GetTable(parts[1])
		if !ok {
			fmt.Fprintf(out, "Table '%s' not found.\n", parts[1])
			return nil
		}
		if err := export.ToSQLite(context.Background(), tbl, parts[1], parts[2]); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return nil
		}
		fmt.Fprintf(out, "Exported %d row(s) of %s to %s\n", tbl.Len(), parts[1], parts[2])

	case ".clear":
		fmt.Fprint(out, "\033[H\033[2J")

	default:
		fmt.Fprintf(out, "Unknown command: %s\n", parts[0])
		fmt.Fprintln(out, "Type '.help' for available commands.")
	}
	return nil
}

func printHelp(out io.Writer) {
	names := make([]string, 0, len(dotCommands))
	for name := range dotCommands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "\nAvailable commands:")
	for _, name := range names {
		fmt.Fprintf(out, "  %-10s %s\n", name, dotCommands[name])
	}
	fmt.Fprintln(out, "\nSQL commands (each ends with ;):")
	fmt.Fprintln(out, "  SELECT cols FROM table [WHERE col = val, ...] [ORDER BY cols [ASC|DESC]];")
	fmt.Fprintln(out, "  SELECT cols FROM table JOIN other ON table.col = other.col [WHERE ...];")
	fmt.Fprintln(out, "  INSERT INTO table VALUES (v1, v2, ...);")
	fmt.Fprintln(out, "  UPDATE table SET col = val, ... WHERE col = val;")
	fmt.Fprintln(out, "  DELETE FROM table WHERE col = val;")
	fmt.Fprintln(out, "  A table may also be a path to a CSV file: SELECT * FROM data/x.csv;")
	fmt.Fprintln(out)
}

func showTableSchema(out io.Writer, name string, exec *executor.Executor) {
	tbl, ok := exec.GetTable(name)
	if !ok {
		fmt.Fprintf(out, "Table '%s' not found.\n", name)
		return
	}
	fmt.Fprintf(out, "%s (%s): id, %s -- %d row(s), next id %d\n",
		name, tbl.Path(), strings.Join(tbl.Headers(), ", "), tbl.Len(), tbl.NextRowID())
}

// executeSQL runs input and prints every result. Execution stops at the
// first error; earlier results are still printed.
func executeSQL(out io.Writer, input string, exec *executor.Executor) {
	results, err := exec.ExecuteSQL(input)
	for _, result := range results {
		s := result.String()
		if !strings.HasSuffix(s, "\n") {
			s += "\n"
		}
		fmt.Fprint(out, s)
	}
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
	}
}
