// Command prompts manages the backend prompt store used for voice
// agent instructions.
//
// Usage:
//
//	prompts list                          # all stored prompts
//	prompts show "Desk Assistant"         # by name or id
//	prompts add "Desk Assistant" -file p.txt
//	echo "Be terse." | prompts add Terse  # content from stdin
//	prompts edit 3 -file p.txt -rename "Desk Assistant v2"
//	prompts rm 3
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/argus-vision/go-argus/internal/config"
	"github.com/argus-vision/go-argus/pkg/prompts"
)

func main() {
	server := flag.String("server", config.ServerURL(), "Detection backend URL")
	file := flag.String("file", "", "Read prompt content from a file (add, edit)")
	rename := flag.String("rename", "", "New prompt name (edit)")
	asJSON := flag.Bool("json", false, "Print prompts as JSON")
	timeout := flag.Duration("timeout", 15*time.Second, "Request timeout")
	flag.Parse()

	client := prompts.NewClient(*server, config.APIKey())
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch flag.Arg(0) {
	case "", "list":
		list(ctx, client, *asJSON)
	case "show":
		show(ctx, client, flag.Arg(1), *asJSON)
	case "add":
		add(ctx, client, flag.Arg(1), *file)
	case "edit":
		edit(ctx, client, flag.Arg(1), *rename, *file)
	case "rm":
		remove(ctx, client, flag.Arg(1))
	default:
		fmt.Fprintln(os.Stderr, "usage: prompts [flags] list|show|add|edit|rm [args]")
		os.Exit(2)
	}
}

func list(ctx context.Context, client *prompts.Client, asJSON bool) {
	all, err := client.List(ctx)
	if err != nil {
		log.Fatalf("❌ List failed: %v", err)
	}
	if asJSON {
		printJSON(all)
		return
	}

	fmt.Printf("📋 %d prompt(s)\n", len(all))
	for _, p := range all {
		fmt.Printf("   %4d  %-28s %s\n", p.ID, p.Name, p.UpdatedAt)
	}
}

func show(ctx context.Context, client *prompts.Client, ref string, asJSON bool) {
	p := lookup(ctx, client, ref)
	if asJSON {
		printJSON(p)
		return
	}

	fmt.Printf("📋 %s (id %d, updated %s)\n\n", p.Name, p.ID, p.UpdatedAt)
	fmt.Println(p.Content)
}

func add(ctx context.Context, client *prompts.Client, name, file string) {
	if name == "" {
		log.Fatal("❌ add needs a prompt name")
	}
	content := readContent(file)

	p, err := client.Create(ctx, name, content)
	if err != nil {
		log.Fatalf("❌ Create failed: %v", err)
	}
	fmt.Printf("✅ Created %q (id %d)\n", p.Name, p.ID)
}

func edit(ctx context.Context, client *prompts.Client, ref, rename, file string) {
	id := parseID(ref)

	var u prompts.Update
	if rename != "" {
		u.Name = &rename
	}
	if file != "" {
		content := readContent(file)
		u.Content = &content
	}
	if u.Name == nil && u.Content == nil {
		log.Fatal("❌ edit needs -rename and/or -file")
	}

	p, err := client.Update(ctx, id, u)
	if err != nil {
		log.Fatalf("❌ Update failed: %v", err)
	}
	fmt.Printf("✅ Updated %q (id %d)\n", p.Name, p.ID)
}

func remove(ctx context.Context, client *prompts.Client, ref string) {
	id := parseID(ref)
	if err := client.Delete(ctx, id); err != nil {
		log.Fatalf("❌ Delete failed: %v", err)
	}
	fmt.Printf("🗑️  Deleted prompt %d\n", id)
}

// lookup resolves a numeric id or a prompt name.
func lookup(ctx context.Context, client *prompts.Client, ref string) *prompts.Prompt {
	if ref == "" {
		log.Fatal("❌ show needs a prompt id or name")
	}

	var (
		p   *prompts.Prompt
		err error
	)
	if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		p, err = client.Get(ctx, id)
	} else {
		p, err = client.FindByName(ctx, ref)
	}
	if err != nil {
		log.Fatalf("❌ Lookup %q failed: %v", ref, err)
	}
	return p
}

func parseID(ref string) int64 {
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		log.Fatalf("❌ Not a prompt id: %q", ref)
	}
	return id
}

// readContent reads the prompt body from a file, or from stdin when no
// file is given.
func readContent(file string) string {
	var (
		data []byte
		err  error
	)
	if file != "" {
		data, err = os.ReadFile(file)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		log.Fatalf("❌ Read content: %v", err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		log.Fatal("❌ Prompt content is empty")
	}
	return content
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("❌ Encode: %v", err)
	}
	fmt.Println(string(out))
}
