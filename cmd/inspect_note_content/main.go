package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"notefiber-editor/internal/config"
	"notefiber-editor/internal/model"
	"notefiber-editor/pkg/database"
	"notefiber-editor/pkg/document"

	"github.com/fatih/color"
)

func main() {
	noteID := flag.String("id", "", "note id to inspect")
	asMarkdown := flag.Bool("md", false, "print the markdown rendering as well")
	flag.Parse()
	if *noteID == "" {
		log.Fatal("Error: -id is required")
	}

	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, false)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	var note model.Note
	if err := db.Where("id = ?", *noteID).First(&note).Error; err != nil {
		log.Fatal("Note not found:", err)
	}

	color.Cyan("INSPECTING NOTE: %s (%s) v%d", note.Title, note.Id, note.Version)
	fmt.Printf("Raw Content Length: %d bytes\n\n", len(note.Content))

	nodes, err := document.Unmarshal(note.Content)
	if err != nil {
		color.Red("Content does not decode: %v", err)
		return
	}
	for _, n := range nodes {
		printNode(n, 0)
	}

	if *asMarkdown {
		color.Cyan("\n- MARKDOWN -")
		fmt.Println(document.ToMarkdown(nodes))
	}
}

func printNode(n document.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v := n.(type) {
	case *document.Text:
		marks := ""
		if v.Marks != 0 {
			marks = " " + color.MagentaString("[%s]", v.Marks)
		}
		fmt.Printf("%s%q%s\n", indent, v.Text, marks)
	case *document.Block:
		attrs := ""
		switch {
		case v.URL != "":
			attrs = " " + color.BlueString(v.URL)
		case v.Type == document.TypeTodoItem:
			attrs = fmt.Sprintf(" checked=%t", v.Checked)
		case v.Type == document.TypeToggleItem:
			attrs = fmt.Sprintf(" collapsed=%t", v.Collapsed)
		}
		fmt.Printf("%s%s%s\n", indent, color.GreenString(string(v.Type)), attrs)
		for _, c := range v.Children {
			printNode(c, depth+1)
		}
	}
}
