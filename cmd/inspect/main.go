// inspect lists the models stored in a model database, or shows the
// node-level detail of a single model.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/factored-mdp/internal/bayesnet"
	"github.com/danielpatrickdp/factored-mdp/internal/modelstore"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the model database")
	model := flag.String("model", "", "show single model detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db models.db [--model id] [--json]")
		os.Exit(2)
	}

	store, err := modelstore.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *model != "" {
		err = runDetailMode(store, *model, *jsonOut)
	} else {
		err = runListMode(store, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	ID      string `json:"model_id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Factors int    `json:"factors"`
	Created string `json:"created_at"`
}

func runListMode(store *modelstore.Store, jsonOut bool) error {
	infos, err := store.ListModels()
	if err != nil {
		return err
	}

	rows := make([]listRow, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, listRow{
			ID:      info.ID,
			Name:    info.Name,
			Kind:    info.Kind,
			Factors: len(info.Space),
			Created: info.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(rows)
	}
	fmt.Printf("%-36s  %-20s  %-8s  %7s  %s\n", "MODEL", "NAME", "KIND", "FACTORS", "CREATED")
	for _, r := range rows {
		fmt.Printf("%-36s  %-20s  %-8s  %7d  %s\n", r.ID, r.Name, r.Kind, r.Factors, r.Created)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type nodeRow struct {
	Child int    `json:"child"`
	Tag   []int  `json:"tag"`
	Rows  int    `json:"rows"`
	Cols  int    `json:"cols"`
	Note  string `json:"note,omitempty"`
}

func runDetailMode(store *modelstore.Store, id string, jsonOut bool) error {
	info, err := store.GetModel(id)
	if err != nil {
		return err
	}

	var nodes []bayesnet.Node
	switch info.Kind {
	case modelstore.KindDBN:
		_, dbn, err := store.LoadDBN(id)
		if err != nil {
			return err
		}
		nodes = dbn.Nodes
	case modelstore.KindCompact:
		_, ddn, err := store.LoadCompactDDN(id)
		if err != nil {
			return err
		}
		nodes = ddn.DefaultTransition().Nodes
	case modelstore.KindFactored:
		_, _, ddn, err := store.LoadFactoredDDN(id)
		if err != nil {
			return err
		}
		return printFactored(info, ddn, jsonOut)
	}

	rows := make([]nodeRow, 0, len(nodes))
	for i := range nodes {
		r, c := nodes[i].CPT.Dims()
		row := nodeRow{Child: i, Tag: nodes[i].Tag, Rows: r, Cols: c}
		if err := bayesnet.ValidateNode(info.Space, i, &nodes[i]); err != nil {
			row.Note = err.Error()
		}
		rows = append(rows, row)
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(rows)
	}
	fmt.Printf("model %s (%s, kind %s, space %v)\n", info.ID, info.Name, info.Kind, info.Space)
	for _, r := range rows {
		fmt.Printf("  child %d: parents %v, cpt %dx%d", r.Child, r.Tag, r.Rows, r.Cols)
		if r.Note != "" {
			fmt.Printf("  [%s]", r.Note)
		}
		fmt.Println()
	}
	return nil
}

type factoredRow struct {
	Child     int   `json:"child"`
	ActionTag []int `json:"action_tag"`
	Tables    int   `json:"tables"`
}

func printFactored(info modelstore.ModelInfo, ddn *bayesnet.FactoredDDN, jsonOut bool) error {
	rows := make([]factoredRow, 0, len(ddn.Nodes))
	for i := range ddn.Nodes {
		rows = append(rows, factoredRow{
			Child:     i,
			ActionTag: ddn.Nodes[i].ActionTag,
			Tables:    len(ddn.Nodes[i].Nodes),
		})
	}
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(rows)
	}
	fmt.Printf("model %s (%s, kind %s, space %v, actions %v)\n", info.ID, info.Name, info.Kind, info.Space, info.Actions)
	for _, r := range rows {
		fmt.Printf("  child %d: action tag %v, %d tables\n", r.Child, r.ActionTag, r.Tables)
	}
	return nil
}

// #endregion detail-mode
