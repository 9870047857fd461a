// backproject loads a stored model and back-projects a basis function
// through it, printing the resulting pre-state (and pre-action) values.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/danielpatrickdp/factored-mdp/internal/backproject"
	"github.com/danielpatrickdp/factored-mdp/internal/basis"
	"github.com/danielpatrickdp/factored-mdp/internal/factored"
	"github.com/danielpatrickdp/factored-mdp/internal/modelstore"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the model database")
	model := flag.String("model", "", "model id to back-project through")
	tagArg := flag.String("tag", "", "comma-separated basis tag, e.g. 0,2")
	valuesArg := flag.String("values", "", "comma-separated dense basis values")
	action := flag.Int("action", 0, "action index (compact models only)")
	flag.Parse()

	if *dbPath == "" || *model == "" || *valuesArg == "" {
		fmt.Fprintln(os.Stderr, "usage: backproject --db models.db --model id --tag 0,1 --values 0,1,0,0 [--action a]")
		os.Exit(2)
	}

	store, err := modelstore.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := run(store, *model, *tagArg, *valuesArg, *action); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(store *modelstore.Store, id, tagArg, valuesArg string, action int) error {
	info, err := store.GetModel(id)
	if err != nil {
		return err
	}

	bf, err := parseBasis(info.Space, tagArg, valuesArg)
	if err != nil {
		return err
	}

	switch info.Kind {
	case modelstore.KindDBN:
		space, dbn, err := store.LoadDBN(id)
		if err != nil {
			return err
		}
		printBasis(space, backproject.Basis(space, dbn, bf))
	case modelstore.KindCompact:
		space, ddn, err := store.LoadCompactDDN(id)
		if err != nil {
			return err
		}
		if action < 0 || action >= ddn.ActionCount() {
			return fmt.Errorf("action %d out of range [0, %d)", action, ddn.ActionCount())
		}
		printBasis(space, backproject.Basis(space, ddn.DiffTransition(action), bf))
	case modelstore.KindFactored:
		space, actions, ddn, err := store.LoadFactoredDDN(id)
		if err != nil {
			return err
		}
		printMatrix(space, actions, backproject.BasisDDN(space, actions, ddn, bf))
	}
	return nil
}

// #endregion main

// #region parse

func parseBasis(space factored.Factors, tagArg, valuesArg string) (basis.BasisFunction, error) {
	tag, err := parseInts(tagArg)
	if err != nil {
		return basis.BasisFunction{}, fmt.Errorf("parse tag: %w", err)
	}
	rawValues := strings.Split(valuesArg, ",")
	values := make([]float64, len(rawValues))
	for i, raw := range rawValues {
		values[i], err = strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return basis.BasisFunction{}, fmt.Errorf("parse values: %w", err)
		}
	}
	bf := basis.BasisFunction{Tag: tag, Values: mat.NewVecDense(len(values), values)}
	if err := basis.ValidateBasis(space, bf); err != nil {
		return basis.BasisFunction{}, err
	}
	return bf, nil
}

func parseInts(arg string) (factored.Tag, error) {
	if strings.TrimSpace(arg) == "" {
		return factored.Tag{}, nil
	}
	parts := strings.Split(arg, ",")
	out := make(factored.Tag, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// #endregion parse

// #region print

func printBasis(space factored.Factors, g basis.BasisFunction) {
	fmt.Printf("g over tag %v (%d entries)\n", g.Tag, g.Values.Len())
	e := factored.NewPartialEnumerator(space, g.Tag)
	id := 0
	for ; e.Valid(); e.Advance() {
		fmt.Printf("  x=%v  g=%.6f\n", e.Partial().Values, g.Values.AtVec(id))
		id++
	}
}

func printMatrix(space, actions factored.Factors, g basis.BasisMatrix) {
	rows, cols := g.Values.Dims()
	fmt.Printf("g over state tag %v x action tag %v (%dx%d)\n", g.Tag, g.ActionTag, rows, cols)
	sDomain := factored.NewPartialEnumerator(space, g.Tag)
	sID := 0
	for ; sDomain.Valid(); sDomain.Advance() {
		aDomain := factored.NewPartialEnumerator(actions, g.ActionTag)
		aID := 0
		for ; aDomain.Valid(); aDomain.Advance() {
			fmt.Printf("  x=%v a=%v  g=%.6f\n", sDomain.Partial().Values, aDomain.Partial().Values, g.Values.At(sID, aID))
			aID++
		}
		sID++
	}
}

// #endregion print
