package main

import (
	"fmt"
	"log"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/ternstore/tern/internal/storage"
	"github.com/ternstore/tern/pkg/query"
	"github.com/ternstore/tern/pkg/store"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: tern <command> [options]")
		fmt.Println("Commands:")
		fmt.Println("  insert <file>  - Insert an N-Triples file")
		fmt.Println("  delete <file>  - Delete the triples of an N-Triples file")
		fmt.Println("  select         - Run a pattern query")
		fmt.Println("  get            - Match a single pattern")
		fmt.Println("  export         - Write the whole store as N-Triples")
		fmt.Println("  stats          - Show store totals and limits")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "insert":
		runInsert(os.Args[2:])
	case "delete":
		runDelete(os.Args[2:])
	case "select":
		runSelect(os.Args[2:])
	case "get":
		runGet(os.Args[2:])
	case "export":
		runExport(os.Args[2:])
	case "stats":
		runStats(os.Args[2:])
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

// openStore opens the badger-backed store with limits from the optional
// YAML config.
func openStore(dbPath, limitsPath string) *store.Store {
	limits, err := loadLimits(limitsPath)
	if err != nil {
		log.Fatalf("Failed to load limits: %v", err)
	}

	backend, err := storage.NewBadgerStorage(dbPath)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}

	return store.Open(backend, limits)
}

func runInsert(args []string) {
	fs := flag.NewFlagSet("insert", flag.ExitOnError)
	dbPath := fs.String("db", "./tern_data", "database directory")
	limitsPath := fs.String("limits", "", "YAML limits file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: tern insert [--db dir] [--limits file] <file.nt>")
		os.Exit(1)
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}

	s := openStore(*dbPath, *limitsPath)
	defer s.Close()

	added, err := s.InsertData(data)
	if err != nil {
		log.Fatalf("Insert failed: %v", err)
	}
	fmt.Printf("Inserted %d triples\n", added)
}

func runDelete(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	dbPath := fs.String("db", "./tern_data", "database directory")
	limitsPath := fs.String("limits", "", "YAML limits file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: tern delete [--db dir] <file.nt>")
		os.Exit(1)
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}

	s := openStore(*dbPath, *limitsPath)
	defer s.Close()

	removed, err := s.DeleteData(data)
	if err != nil {
		log.Fatalf("Delete failed: %v", err)
	}
	fmt.Printf("Deleted %d triples\n", removed)
}

func runSelect(args []string) {
	fs := flag.NewFlagSet("select", flag.ExitOnError)
	dbPath := fs.String("db", "./tern_data", "database directory")
	limitsPath := fs.String("limits", "", "YAML limits file")
	patterns := fs.StringArray("pattern", nil, `triple pattern, e.g. '?s <http://example.org/knows> ?o'`)
	selects := fs.StringSlice("select", nil, "projected variable names")
	orderBy := fs.StringSlice("order-by", nil, "ordering variable names")
	limit := fs.Int("limit", 100, "maximum number of rows")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	q := &query.Query{
		Select:  *selects,
		OrderBy: *orderBy,
		Limit:   *limit,
	}
	for _, text := range *patterns {
		p, err := parsePattern(text)
		if err != nil {
			log.Fatalf("Invalid pattern %q: %v", text, err)
		}
		q.Patterns = append(q.Patterns, p)
	}

	s := openStore(*dbPath, *limitsPath)
	defer s.Close()

	rows, err := s.Select(q)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	for _, row := range rows {
		for _, name := range q.Select {
			fmt.Printf("?%s = %s  ", name, row[name])
		}
		fmt.Println()
	}
	fmt.Printf("%d rows\n", len(rows))
}

func runGet(args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	dbPath := fs.String("db", "./tern_data", "database directory")
	subject := fs.String("subject", "", "bound subject term")
	predicate := fs.String("predicate", "", "bound predicate term")
	object := fs.String("object", "", "bound object term")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	s := openStore(*dbPath, "")
	defer s.Close()

	sTerm, err := parseOptionalTerm(*subject)
	if err != nil {
		log.Fatalf("Invalid subject: %v", err)
	}
	pTerm, err := parseOptionalTerm(*predicate)
	if err != nil {
		log.Fatalf("Invalid predicate: %v", err)
	}
	oTerm, err := parseOptionalTerm(*object)
	if err != nil {
		log.Fatalf("Invalid object: %v", err)
	}

	it, err := s.Match(sTerm, pTerm, oTerm)
	if err != nil {
		log.Fatalf("Match failed: %v", err)
	}
	defer it.Close()

	n := 0
	for it.Next() {
		t, err := it.Triple()
		if err != nil {
			log.Fatalf("Failed to decode triple: %v", err)
		}
		fmt.Println(t)
		n++
	}
	fmt.Printf("%d triples\n", n)
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dbPath := fs.String("db", "./tern_data", "database directory")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	s := openStore(*dbPath, "")
	defer s.Close()

	data, err := exportAll(s)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	os.Stdout.Write(data)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	dbPath := fs.String("db", "./tern_data", "database directory")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	s := openStore(*dbPath, "")
	defer s.Close()

	stats, err := s.Stats()
	if err != nil {
		log.Fatalf("Stats failed: %v", err)
	}
	fmt.Printf("triples: %d\n", stats.TripleCount)
	fmt.Printf("bytes:   %d\n", stats.ByteSize)
}
