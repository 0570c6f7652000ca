package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/oisee/z80-optimizer/pkg/batch"
	"github.com/oisee/z80-optimizer/pkg/bv"
	"github.com/oisee/z80-optimizer/pkg/domain"
	"github.com/oisee/z80-optimizer/pkg/gen"
	"github.com/oisee/z80-optimizer/pkg/invert"
	"github.com/oisee/z80-optimizer/pkg/result"
	"github.com/oisee/z80-optimizer/pkg/wheel"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var logger zerolog.Logger

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "bvic",
		Short: "Bit-vector domain and invertibility-condition toolkit",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
				Level(level).With().Timestamp().Logger()
			log.Logger = logger
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(newDomainCmd(), newGenCmd(), newWheelCmd(), newCheckCmd(), newVerifyJSONLCmd())
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newDomainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domain [ternary]",
		Short: "Inspect a domain given as an MSB-first ternary string (e.g. x10x)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := domain.NewFromChar(args[0])
			if err != nil {
				return fmt.Errorf("parse domain: %w", err)
			}
			fmt.Printf("width:  %d\n", domain.Width(d))
			fmt.Printf("lo:     %s\n", d.Lo)
			fmt.Printf("hi:     %s\n", d.Hi)
			fmt.Printf("ternary: %s\n", domain.ToChar(d))
			fmt.Printf("valid:  %t\n", domain.IsValid(d))
			fmt.Printf("fixed:  %t\n", domain.IsFixed(d))
			return nil
		},
	}
	return cmd
}

func newGenCmd() *cobra.Command {
	var minStr, maxStr string
	var randomN int
	var seed uint64

	cmd := &cobra.Command{
		Use:   "gen [ternary]",
		Short: "Enumerate (or sample) the concrete values of a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := domain.NewFromChar(args[0])
			if err != nil {
				return fmt.Errorf("parse domain: %w", err)
			}
			if !domain.IsValid(d) {
				return fmt.Errorf("domain %q is invalid (lo has a bit set where hi does not)", args[0])
			}
			w := domain.Width(d)

			var min, max *bv.BV
			if minStr != "" {
				v, err := parseBVLiteral(minStr, w)
				if err != nil {
					return fmt.Errorf("--min: %w", err)
				}
				min = &v
			}
			if maxStr != "" {
				v, err := parseBVLiteral(maxStr, w)
				if err != nil {
					return fmt.Errorf("--max: %w", err)
				}
				max = &v
			}

			if randomN > 0 {
				rng := newRNG(seed)
				g := gen.InitRange(rng, d, min, max)
				for i := 0; i < randomN; i++ {
					fmt.Println(g.Random())
				}
				return nil
			}

			g := gen.InitRange(nil, d, min, max)
			count := 0
			for g.HasNext() {
				fmt.Println(g.Next())
				count++
			}
			log.Debug().Int("count", count).Msg("enumeration complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&minStr, "min", "", "Inclusive lower bound (decimal or 0x-prefixed hex)")
	cmd.Flags().StringVar(&maxStr, "max", "", "Inclusive upper bound (decimal or 0x-prefixed hex)")
	cmd.Flags().IntVar(&randomN, "random", 0, "Sample N random values instead of enumerating")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "RNG seed for --random")
	return cmd
}

func newWheelCmd() *cobra.Command {
	var width int
	var limit uint64

	cmd := &cobra.Command{
		Use:   "wheel [n]",
		Short: "Factor n via mod-30 wheel trial division",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parse n: %w", err)
			}
			n := bv.FromUint64(v, uint32(width))
			wf := wheel.NewFactorizer(n, limit)
			var factors []uint64
			for {
				f, ok := wf.Next()
				if !ok {
					break
				}
				factors = append(factors, f.Uint64())
			}
			fmt.Printf("%d = %v\n", v, factors)
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 64, "Bit width of n")
	cmd.Flags().Uint64Var(&limit, "limit", 0, "Iteration limit (0 = unbounded)")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var opStr string
	var posX uint8
	var tStr, sStr, domainStr string
	var upper, lower uint32
	var useConst bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate an invertibility condition for op(x, s) = t",
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := invert.ParseOpKind(opStr)
			if err != nil {
				return err
			}
			tBV, err := bv.FromChar(tStr)
			if err != nil {
				return fmt.Errorf("parse t: %w", err)
			}
			q := invert.Query{Op: op, PosX: posX, T: tBV, Upper: upper, Lower: lower}
			if op != invert.OpSlice {
				s, err := bv.FromChar(sStr)
				if err != nil {
					return fmt.Errorf("parse s: %w", err)
				}
				q.S = s
			}
			if useConst {
				d, err := domain.NewFromChar(domainStr)
				if err != nil {
					return fmt.Errorf("parse domain: %w", err)
				}
				q.X = &d
				fmt.Println(invert.IsInvConst(q))
				return nil
			}
			fmt.Println(invert.IsInv(q))
			return nil
		},
	}
	cmd.Flags().StringVar(&opStr, "op", "", "Operator: add, and, concat, eq, mul, sll, srl, ult, udiv, urem, slice")
	cmd.Flags().Uint8Var(&posX, "pos-x", 0, "Position of x in the operator's operands (0 or 1)")
	cmd.Flags().StringVar(&tStr, "t", "", "Target value as a binary string")
	cmd.Flags().StringVar(&sStr, "s", "", "Known operand as a binary string")
	cmd.Flags().StringVar(&domainStr, "domain", "", "Domain of x as a ternary string (required with --const)")
	cmd.Flags().Uint32Var(&upper, "upper", 0, "Slice upper bit index (op=slice only)")
	cmd.Flags().Uint32Var(&lower, "lower", 0, "Slice lower bit index (op=slice only)")
	cmd.Flags().BoolVar(&useConst, "const", false, "Evaluate the const-bit IC instead of the plain IC")
	cmd.MarkFlagRequired("op")
	cmd.MarkFlagRequired("t")
	return cmd
}

// jsonlQuery is the on-disk shape accepted by verify-jsonl: one JSON object
// per line describing an invertibility query to cross-check against the
// brute-force oracle.
type jsonlQuery struct {
	Op     string `json:"op"`
	PosX   uint8  `json:"pos_x"`
	T      string `json:"t"`
	S      string `json:"s"`
	Domain string `json:"domain,omitempty"`
	Const  bool   `json:"const"`
	Upper  uint32 `json:"upper,omitempty"`
	Lower  uint32 `json:"lower,omitempty"`
}

func newVerifyJSONLCmd() *cobra.Command {
	var numWorkers int
	var checkpointPath string

	cmd := &cobra.Command{
		Use:   "verify-jsonl [file.jsonl]",
		Short: "Cross-check a batch of invertibility queries against the brute-force oracle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var prior *result.Checkpoint
			if checkpointPath != "" {
				if c, err := result.LoadCheckpoint(checkpointPath); err == nil {
					prior = c
					log.Info().Int64("checked", c.CheckedSoFar).Int("mismatches", len(c.Mismatches)).
						Str("op", c.CompletedOp).Msg("resuming from checkpoint")
				}
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var queries []batch.Query
			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 1<<20), 1<<20)
			lineNo := 0
			for scanner.Scan() {
				lineNo++
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				var jq jsonlQuery
				if err := json.Unmarshal([]byte(line), &jq); err != nil {
					log.Warn().Int("line", lineNo).Err(err).Msg("skipping malformed query")
					continue
				}
				op, err := invert.ParseOpKind(jq.Op)
				if err != nil {
					log.Warn().Int("line", lineNo).Err(err).Msg("skipping unknown operator")
					continue
				}
				tBV, err := bv.FromChar(jq.T)
				if err != nil {
					log.Warn().Int("line", lineNo).Err(err).Msg("skipping invalid t")
					continue
				}
				q := batch.Query{
					Query: invert.Query{Op: op, PosX: jq.PosX, T: tBV, Upper: jq.Upper, Lower: jq.Lower},
					Width: tBV.Width(),
					Const: jq.Const,
				}
				if op != invert.OpSlice {
					sBV, err := bv.FromChar(jq.S)
					if err != nil {
						log.Warn().Int("line", lineNo).Err(err).Msg("skipping invalid s")
						continue
					}
					q.S = sBV
				}
				if jq.Domain != "" {
					d, err := domain.NewFromChar(jq.Domain)
					if err != nil {
						log.Warn().Int("line", lineNo).Err(err).Msg("skipping invalid domain")
						continue
					}
					q.X = &d
				}
				queries = append(queries, q)
			}
			if err := scanner.Err(); err != nil {
				return err
			}

			pool := batch.NewPool(numWorkers)
			pool.RunQueries(context.Background(), queries, true)

			checked, mismatches := pool.Stats()
			fmt.Printf("\nchecked %d queries, %d mismatches\n", checked, mismatches)
			for _, m := range pool.Results.Mismatches() {
				fmt.Printf("  MISMATCH %s const=%t posX=%d t=%s s=%s domain=%q got=%t want=%t\n",
					m.Op, m.Const, m.PosX, m.T, m.S, m.Domain, m.Got, m.Expected)
			}

			if checkpointPath != "" {
				ckpt := &result.Checkpoint{
					Mismatches:   pool.Results.Mismatches(),
					CheckedSoFar: checked,
					CompletedOp:  "verify-jsonl",
				}
				if prior != nil {
					ckpt.CheckedSoFar += prior.CheckedSoFar
					ckpt.Mismatches = append(prior.Mismatches, ckpt.Mismatches...)
				}
				if err := result.SaveCheckpoint(checkpointPath, ckpt); err != nil {
					log.Warn().Err(err).Msg("failed to save checkpoint")
				}
			}

			if mismatches > 0 {
				return fmt.Errorf("%d queries disagreed with the brute-force oracle", mismatches)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&numWorkers, "workers", 0, "Number of workers (0 = NumCPU)")
	cmd.Flags().StringVar(&checkpointPath, "checkpoint", "", "Load/save progress to this gob checkpoint file")
	return cmd
}

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func parseBVLiteral(s string, width uint32) (bv.BV, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return bv.BV{}, err
	}
	return bv.FromUint64(v, width), nil
}
