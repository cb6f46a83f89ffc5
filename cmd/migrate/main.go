// Command migrate imports page elements from a TOML seed file into the
// portal database. Existing (page_key, element_key) pairs are replaced.
package main

import (
	"flag"
	"log"

	"github.com/BurntSushi/toml"

	"github.com/alnahda/portal/internal/content"
	"github.com/alnahda/portal/internal/db"
	"github.com/alnahda/portal/internal/model"
)

type seedFile struct {
	Elements []seedElement `toml:"element"`
}

type seedElement struct {
	PageKey    string `toml:"page_key"`
	ElementKey string `toml:"element_key"`
	ContentAr  string `toml:"content_ar"`
	ContentEn  string `toml:"content_en"`
	Type       string `toml:"type"`
}

func main() {
	path := flag.String("path", "", "Path to the TOML seed file")
	dsn := flag.String("db", "", "SQLite database path (defaults to ./portal.db)")
	flag.Parse()

	if *path == "" {
		log.Fatal("The --path flag is required")
	}

	var seed seedFile
	if _, err := toml.DecodeFile(*path, &seed); err != nil {
		log.Fatalf("Error parsing seed file %s: %v", *path, err)
	}

	DB := db.NewSQLite(*dsn)
	if err := DB.InitDB(); err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	defer DB.Close()

	repo := content.NewDBRepository(DB)

	imported := 0
	for _, el := range seed.Elements {
		elementType := model.ElementType(el.Type)
		if !elementType.IsValid() {
			log.Printf("Skipping %s:%s: unknown element type %q", el.PageKey, el.ElementKey, el.Type)
			continue
		}

		err := repo.SaveElement(&model.PageElement{
			PageKey:     el.PageKey,
			ElementKey:  el.ElementKey,
			ContentAr:   el.ContentAr,
			ContentEn:   el.ContentEn,
			ElementType: elementType,
		})
		if err != nil {
			log.Printf("Error saving %s:%s: %v", el.PageKey, el.ElementKey, err)
			continue
		}
		imported++
	}

	log.Printf("Imported %d of %d elements", imported, len(seed.Elements))
}
