package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lakesuperior/lsup-store/config"
	"github.com/lakesuperior/lsup-store/events"
	"github.com/lakesuperior/lsup-store/metrics"
	"github.com/lakesuperior/lsup-store/ntriples"
	"github.com/lakesuperior/lsup-store/store"
	"github.com/lakesuperior/lsup-store/term"
)

func openEngine(v *viper.Viper) (*store.Engine, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	e, err := store.Open(cfg, events.NopSink{})
	if err != nil {
		return nil, err
	}
	e.SetMetrics(metrics.NewCollector())
	return e, nil
}

func newBootstrapCmd(v *viper.Viper) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Initialize a new, empty storage engine file",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(v)
			if err != nil {
				return err
			}
			defer e.Close()
			if err := store.Bootstrap(e, force); err != nil {
				return err
			}
			fmt.Println("bootstrap complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-bootstrap an already-initialized store, discarding its indices")
	return cmd
}

func newRebuildCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Re-derive the permutation and context indices from the primary index",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(v)
			if err != nil {
				return err
			}
			defer e.Close()
			if err := store.Rebuild(e); err != nil {
				return err
			}
			fmt.Println("rebuild complete")
			return nil
		},
	}
}

func newStatsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print quad and term counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(v)
			if err != nil {
				return err
			}
			defer e.Close()
			st, err := e.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("quads: %d\nterms: %d\n", st.Quads, st.Terms)
			return nil
		},
	}
}

func newImportCmd(v *viper.Viper) *cobra.Command {
	var contextIRI string
	cmd := &cobra.Command{
		Use:   "import <file.nt>",
		Short: "Import an N-Triples file into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(v)
			if err != nil {
				return err
			}
			defer e.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var ctx term.Term = term.IRI("")
			if contextIRI != "" {
				ctx = term.NewIRI(contextIRI)
			}

			st := e.NewStore()
			dec := ntriples.NewDecoder(f)

			tx, err := e.BeginWrite()
			if err != nil {
				return err
			}

			n := 0
			for {
				tr, derr := dec.Decode()
				if errors.Is(derr, io.EOF) {
					break
				}
				if derr != nil {
					tx.Abort()
					return derr
				}
				if addErr := st.Add(tx, tr.S, tr.P, tr.O, ctx); addErr != nil {
					tx.Abort()
					return addErr
				}
				n++
			}
			if err := tx.Commit(); err != nil {
				return err
			}
			fmt.Printf("imported %d triples from %s\n", n, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&contextIRI, "context", "", "context IRI to import into (defaults to the default graph)")
	return cmd
}

func newDumpCmd(v *viper.Viper) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump every stored triple as N-Triples",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(v)
			if err != nil {
				return err
			}
			defer e.Close()

			out := io.Writer(os.Stdout)
			if outPath != "" {
				f, ferr := os.Create(outPath)
				if ferr != nil {
					return ferr
				}
				defer f.Close()
				out = f
			}

			st := e.NewStore()
			enc := ntriples.NewEncoder(out, nil)

			tx, err := e.BeginRead()
			if err != nil {
				return err
			}
			defer tx.Abort()

			cur, err := st.Lookup(tx, store.TermPattern{})
			if err != nil {
				return err
			}
			defer cur.Close()

			for {
				sk, pk, ok, _, more := cur.Next()
				if !more {
					return cur.Err()
				}
				s, err := st.Resolve(tx, sk)
				if err != nil {
					return err
				}
				p, err := st.Resolve(tx, pk)
				if err != nil {
					return err
				}
				o, err := st.Resolve(tx, ok)
				if err != nil {
					return err
				}
				if err := enc.Encode(ntriples.Triple{S: s, P: p, O: o}); err != nil {
					return err
				}
			}
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "write to this file instead of standard out")
	return cmd
}
