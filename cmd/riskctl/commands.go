package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"FinRisk/internal/domain/models"
	"FinRisk/internal/usecase"
	"FinRisk/pkg/util"
)

func scoreCmd(opts *rootOptions) *cobra.Command {
	var (
		price float64
		at    string
	)
	cmd := &cobra.Command{
		Use:   "score SYMBOL [SYMBOL...]",
		Short: "Score symbols at a given price",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if price <= 0 {
				return fmt.Errorf("--price must be positive")
			}
			when := time.Now().UTC()
			if at != "" {
				t, ok := util.ParseTime(at)
				if !ok {
					return fmt.Errorf("invalid --at %q", at)
				}
				when = t
			}
			_, off, err := opts.load()
			if err != nil {
				return err
			}
			prices := make(map[string]float64, len(args))
			for _, s := range args {
				prices[s] = price
			}
			items, err := off.Scoring.ScoreBatch(cmd.Context(), usecase.BatchInput{Symbols: args, Prices: prices, At: when})
			if err != nil {
				return err
			}
			return printScores(cmd.OutOrStdout(), items, opts.asJSON)
		},
	}
	cmd.Flags().Float64VarP(&price, "price", "p", 0, "observed price")
	cmd.Flags().StringVar(&at, "at", "", "evaluation time (RFC3339, YYYY-MM-DD or unix seconds)")
	return cmd
}

func priceCmd(opts *rootOptions) *cobra.Command {
	var r float64
	cmd := &cobra.Command{
		Use:   "price SYMBOL",
		Short: "Price at which a symbol reaches the given risk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, off, err := opts.load()
			if err != nil {
				return err
			}
			p, b, err := off.Scoring.PriceForRisk(cmd.Context(), args[0], r)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{"symbol": b.Symbol, "risk": r, "price": round(p, 8)})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s risk=%s price=%s\n", b.Symbol, decimal.NewFromFloat(r).String(), decimal.NewFromFloat(p).Round(2).StringFixed(2))
			return err
		},
	}
	cmd.Flags().Float64VarP(&r, "risk", "r", 0.5, "target risk in [0,1]")
	return cmd
}

func tableCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "table SYMBOL",
		Short: "Show the risk bands of a symbol with prices and coefficients",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, off, err := opts.load()
			if err != nil {
				return err
			}
			bt, err := off.Scoring.Bands(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), bt)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "BAND\tRISK\tPRICE LOW\tPRICE HIGH\tCOEF\n")
			for _, r := range bt.Rows {
				coef := "-"
				if bt.TableVersion != "" {
					coef = decimal.NewFromFloat(r.Coefficient).StringFixed(3)
				}
				fmt.Fprintf(w, "%d\t%.1f-%.1f\t%s\t%s\t%s\n", r.Band, r.RiskLow, r.RiskHigh,
					decimal.NewFromFloat(r.PriceLow).StringFixed(2), decimal.NewFromFloat(r.PriceHigh).StringFixed(2), coef)
			}
			if bt.TableVersion != "" {
				fmt.Fprintf(w, "\ntable version %s\n", bt.TableVersion)
			}
			return w.Flush()
		},
	}
}

func calibrateCmd(opts *rootOptions) *cobra.Command {
	var (
		days  string
		total int
	)
	cmd := &cobra.Command{
		Use:   "calibrate SYMBOL",
		Short: "Build a coefficient table from time-in-band day counts",
		Long: "Build a coefficient table from --days (ten comma separated counts) and --total.\n" +
			"Without --days the counts configured for the symbol are used.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, off, err := opts.load()
			if err != nil {
				return err
			}
			var t models.BandCoefficientTable
			if days == "" {
				t, err = off.Calibration.Rebuild(cmd.Context(), args[0])
			} else {
				var d models.HistoricalBandDistribution
				if d, err = parseDistribution(args[0], days, total); err != nil {
					return err
				}
				t, err = off.Calibration.RebuildFromDistribution(d)
			}
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), t)
			}
			coefs := make([]string, len(t.Coefficients))
			for i, c := range t.Coefficients {
				coefs[i] = decimal.NewFromFloat(c).StringFixed(3)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s [%s]\n", t.Symbol, t.Version, strings.Join(coefs, " "))
			return err
		},
	}
	cmd.Flags().StringVar(&days, "days", "", "comma separated day counts for bands 0..9")
	cmd.Flags().IntVar(&total, "total", 0, "total observed days (defaults to the sum of --days)")
	return cmd
}

func parseDistribution(symbol, days string, total int) (models.HistoricalBandDistribution, error) {
	parts := strings.Split(days, ",")
	if len(parts) != models.BandCount {
		return models.HistoricalBandDistribution{}, fmt.Errorf("--days needs %d values, got %d", models.BandCount, len(parts))
	}
	d := models.HistoricalBandDistribution{Symbol: symbol, TotalDays: total}
	sum := 0
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return models.HistoricalBandDistribution{}, fmt.Errorf("--days value %d: %w", i, err)
		}
		d.DaysSpent[i] = n
		sum += n
	}
	if d.TotalDays == 0 {
		d.TotalDays = sum
	}
	return d, nil
}

type scoreRow struct {
	Symbol      string        `json:"symbol"`
	RiskValue   float64       `json:"risk_value,omitempty"`
	Band        int           `json:"band,omitempty"`
	BaseScore   float64       `json:"base_score,omitempty"`
	Coefficient float64       `json:"coefficient,omitempty"`
	FinalScore  float64       `json:"final_score,omitempty"`
	Signal      models.Signal `json:"signal,omitempty"`
	Rule        string        `json:"rule,omitempty"`
	Error       string        `json:"error,omitempty"`
}

func printScores(out io.Writer, items []usecase.BatchItem, asJSON bool) error {
	rows := make([]scoreRow, 0, len(items))
	var failed int
	for _, it := range items {
		if it.Err != nil {
			failed++
			rows = append(rows, scoreRow{Symbol: it.Symbol, Error: it.Err.Error()})
			continue
		}
		r := it.Output.Result
		rows = append(rows, scoreRow{
			Symbol:      r.Symbol,
			RiskValue:   round(r.RiskValue, 6),
			Band:        r.Band,
			BaseScore:   round(r.BaseScore, 4),
			Coefficient: round(r.Coefficient, 6),
			FinalScore:  round(r.FinalScore, 4),
			Signal:      r.Signal,
			Rule:        string(it.Output.DBI.Rule),
		})
	}
	if asJSON {
		if err := writeJSON(out, rows); err != nil {
			return err
		}
	} else {
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "SYMBOL\tRISK\tBAND\tBASE\tCOEF\tFINAL\tSIGNAL\tRULE\n")
		for _, r := range rows {
			if r.Error != "" {
				fmt.Fprintf(w, "%s\terror: %s\n", r.Symbol, r.Error)
				continue
			}
			fmt.Fprintf(w, "%s\t%.4f\t%d\t%.2f\t%.4f\t%.2f\t%s\t%s\n",
				r.Symbol, r.RiskValue, r.Band, r.BaseScore, r.Coefficient, r.FinalScore, r.Signal, r.Rule)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d symbols failed", failed, len(items))
	}
	return nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
