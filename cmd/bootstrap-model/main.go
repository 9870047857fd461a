// bootstrap-model loads a YAML model definition, validates it, and
// persists it into the model database.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/danielpatrickdp/factored-mdp/internal/modelfile"
	"github.com/danielpatrickdp/factored-mdp/internal/modelstore"
)

// #region main
func main() {
	dbPath := flag.String("db", envOr("FMDP_DB", "models.db"), "path to the model database")
	file := flag.String("file", "", "path to the YAML model definition")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: bootstrap-model --file model.yaml [--db models.db]")
		os.Exit(2)
	}

	fmt.Println("=== Model Bootstrap Tool ===")
	fmt.Printf("  DB: %s | File: %s\n", *dbPath, *file)

	doc, err := modelfile.Load(*file)
	if err != nil {
		log.Fatalf("load model file: %v", err)
	}

	store, err := modelstore.NewStore(*dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	var id string
	switch doc.Kind {
	case "dbn":
		space, dbn, err := doc.BuildDBN()
		if err != nil {
			log.Fatalf("build model: %v", err)
		}
		id, err = store.SaveDBN(doc.Name, space, dbn)
		if err != nil {
			log.Fatalf("save model: %v", err)
		}
		fmt.Printf("  Kind: dbn | Factors: %d\n", len(space))
	case "compact":
		space, ddn, err := doc.BuildCompactDDN()
		if err != nil {
			log.Fatalf("build model: %v", err)
		}
		id, err = store.SaveCompactDDN(doc.Name, space, ddn)
		if err != nil {
			log.Fatalf("save model: %v", err)
		}
		fmt.Printf("  Kind: compact | Factors: %d | Actions: %d\n", len(space), ddn.ActionCount())
	case "factored":
		space, actions, ddn, err := doc.BuildFactoredDDN()
		if err != nil {
			log.Fatalf("build model: %v", err)
		}
		id, err = store.SaveFactoredDDN(doc.Name, space, actions, ddn)
		if err != nil {
			log.Fatalf("save model: %v", err)
		}
		fmt.Printf("  Kind: factored | Factors: %d | Action factors: %d\n", len(space), len(actions))
	}

	fmt.Printf("Stored model %q as %s\n", doc.Name, id)
}

// #endregion main

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
