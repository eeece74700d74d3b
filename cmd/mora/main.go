/*
main.go - CLI for the mora indemnification calculator

PURPOSE:
  Command-line interface mirroring the service's three operations:

    mora calcular            Run an Art. 276 LISF mora calculation
    mora consultar-udis      Look up the UDI value for a date
    mora consultar-ccp-udis  Look up CCP-UDIS values for a month range

  UDI values and the CCP-UDIS table are fetched from Banxico (through
  the local SQLite cache) unless provided via flags.

EXAMPLES:
  mora calcular --p0-mxn 100000 --t0 2023-01-01 --tf 2023-06-30
  mora calcular --p0-mxn 100000 --t0 2023-01-01 --tf 2023-01-31 \
      --udi-t0 7.5 --udi-tf 7.6
  mora consultar-udis --fecha 2023-05-10
  mora consultar-ccp-udis --inicio 2023-01 --fin 2023-06

CONFIGURATION:
  --config points to a TOML file carrying the Banxico token and the
  cache database path (default: mora.toml).
*/
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/guzmandam/indemnizacion-mora-lisf276/banxico"
	"github.com/guzmandam/indemnizacion-mora-lisf276/config"
	"github.com/guzmandam/indemnizacion-mora-lisf276/mora"
	"github.com/guzmandam/indemnizacion-mora-lisf276/store/sqlite"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "mora",
	Short: "Calculadora de indemnización por mora (Art. 276 LISF)",
	Long: `Calcula la indemnización por mora conforme al Artículo 276 de la
LISF (México): el principal se denomina en UDIs, devenga interés mensual a
1.25 veces el CCP-UDIS y se reconvierte a pesos a la fecha de cálculo.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "mora.toml", "Ruta del archivo de configuración TOML")

	rootCmd.AddCommand(calcularCmd)
	rootCmd.AddCommand(consultarUDIsCmd)
	rootCmd.AddCommand(consultarCCPCmd)

	calcularCmd.Flags().String("p0-mxn", "", "Principal en pesos (MXN)")
	calcularCmd.Flags().String("t0", "", "Fecha de inicio de mora (YYYY-MM-DD)")
	calcularCmd.Flags().String("tf", "", "Fecha de cálculo/pago (YYYY-MM-DD)")
	calcularCmd.Flags().String("udi-t0", "", "Valor UDI en t0 (opcional)")
	calcularCmd.Flags().String("udi-tf", "", "Valor UDI en tf (opcional)")
	calcularCmd.Flags().Bool("exclusivo", false, "Conteo de días excluyendo extremos")
	_ = calcularCmd.MarkFlagRequired("p0-mxn")
	_ = calcularCmd.MarkFlagRequired("t0")
	_ = calcularCmd.MarkFlagRequired("tf")

	consultarUDIsCmd.Flags().String("fecha", "", "Fecha (YYYY-MM-DD)")
	_ = consultarUDIsCmd.MarkFlagRequired("fecha")

	consultarCCPCmd.Flags().String("inicio", "", "Mes inicial (YYYY-MM)")
	consultarCCPCmd.Flags().String("fin", "", "Mes final (YYYY-MM)")
	_ = consultarCCPCmd.MarkFlagRequired("inicio")
	_ = consultarCCPCmd.MarkFlagRequired("fin")
}

// newSource opens the cache store and wires the Banxico client behind it.
// The caller must Close the returned store.
func newSource() (*sqlite.CachedSource, *sqlite.Store, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("abrir base de datos: %w", err)
	}

	client := banxico.New(cfg.Banxico.Token)
	if cfg.Banxico.BaseURL != "" {
		client.BaseURL = cfg.Banxico.BaseURL
	}
	return sqlite.NewCachedSource(store, client), store, nil
}

// =============================================================================
// calcular
// =============================================================================

var calcularCmd = &cobra.Command{
	Use:   "calcular",
	Short: "Calcula la indemnización por mora para un período",
	RunE:  runCalcular,
}

func runCalcular(cmd *cobra.Command, args []string) error {
	rawPrincipal, _ := cmd.Flags().GetString("p0-mxn")
	rawT0, _ := cmd.Flags().GetString("t0")
	rawTF, _ := cmd.Flags().GetString("tf")
	rawUDI0, _ := cmd.Flags().GetString("udi-t0")
	rawUDIF, _ := cmd.Flags().GetString("udi-tf")
	exclusive, _ := cmd.Flags().GetBool("exclusivo")

	principal, err := decimal.NewFromString(rawPrincipal)
	if err != nil {
		return fmt.Errorf("principal inválido %q: %w", rawPrincipal, err)
	}
	t0, err := time.Parse("2006-01-02", rawT0)
	if err != nil {
		return fmt.Errorf("fecha t0 inválida %q: %w", rawT0, err)
	}
	tf, err := time.Parse("2006-01-02", rawTF)
	if err != nil {
		return fmt.Errorf("fecha tf inválida %q: %w", rawTF, err)
	}

	in := mora.CalculationInput{
		Principal: principal,
		Start:     mora.DayOf(t0),
		End:       mora.DayOf(tf),
		Inclusive: !exclusive,
	}

	ctx := context.Background()
	source, store, err := newSource()
	if err != nil {
		return err
	}
	defer store.Close()

	if rawUDI0 != "" {
		if in.UDIStart, err = decimal.NewFromString(rawUDI0); err != nil {
			return fmt.Errorf("udi-t0 inválido %q: %w", rawUDI0, err)
		}
	} else if in.UDIStart, err = source.UDIValue(ctx, in.Start); err != nil {
		return err
	}
	if rawUDIF != "" {
		if in.UDIEnd, err = decimal.NewFromString(rawUDIF); err != nil {
			return fmt.Errorf("udi-tf inválido %q: %w", rawUDIF, err)
		}
	} else if in.UDIEnd, err = source.UDIValue(ctx, in.End); err != nil {
		return err
	}

	if in.Rates, err = source.CCPTable(ctx, mora.MonthKeyOf(in.Start), mora.MonthKeyOf(in.End)); err != nil {
		return err
	}

	res, err := mora.Calculate(in)
	if err != nil {
		return err
	}

	printResult(cmd, rawT0, rawTF, principal, res)
	return nil
}

func printResult(cmd *cobra.Command, t0, tf string, principal decimal.Decimal, res *mora.CalculationResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "\nCálculo de indemnización por mora (Art. 276 LISF)\n")
	fmt.Fprintf(out, "==================================================\n")
	fmt.Fprintf(out, "Principal: $%s MXN\n", principal.StringFixed(2))
	fmt.Fprintf(out, "Período: %s a %s\n", t0, tf)
	fmt.Fprintf(out, "UDI inicial: %s\n", res.UDIStart)
	fmt.Fprintf(out, "UDI final: %s\n", res.UDIEnd)

	fmt.Fprintf(out, "\nResultados:\n")
	fmt.Fprintf(out, "- Número de períodos: %d\n", res.PeriodCount)
	fmt.Fprintf(out, "- Total de días en mora: %d\n", res.TotalDays)
	fmt.Fprintf(out, "- Factor acumulado (Phi): %s\n", res.CumulativeFactor.StringFixed(10))
	fmt.Fprintf(out, "- Principal en UDI (U0): %s\n", res.InitialUDI.StringFixed(10))
	fmt.Fprintf(out, "- Saldo final en UDI (Ufin): %s\n", res.FinalUDI.StringFixed(10))
	fmt.Fprintf(out, "- Principal actualizado: $%s MXN\n", res.UpdatedPrincipalMXN.StringFixed(2))
	fmt.Fprintf(out, "- Interés moratorio: $%s MXN\n", res.TotalInterestMXN.StringFixed(2))
	fmt.Fprintf(out, "- Total a pagar: $%s MXN\n", res.TotalMXN.StringFixed(2))

	fmt.Fprintf(out, "\nDesglose mensual:\n")
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Mes\tDías\tCCP(%)\tTasa anual\tTasa diaria\tFactor\tPhi acum\tInt UDI\tInt MXN")
	for _, seg := range res.Ledger {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t$%s\n",
			seg.Month,
			seg.Days,
			seg.CCPPct.StringFixed(4),
			seg.AnnualRate.StringFixed(6),
			seg.DailyRate.StringFixed(10),
			seg.GrowthFactor.StringFixed(10),
			seg.CumulativeFactor.StringFixed(10),
			seg.InterestUDI.StringFixed(10),
			seg.InterestMXN.StringFixed(2),
		)
	}
	tw.Flush()
}

// =============================================================================
// consultar-udis
// =============================================================================

var consultarUDIsCmd = &cobra.Command{
	Use:   "consultar-udis",
	Short: "Consulta el valor de las UDIS para una fecha",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("fecha")
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("fecha inválida %q: %w", raw, err)
		}

		source, store, err := newSource()
		if err != nil {
			return err
		}
		defer store.Close()

		value, err := source.UDIValue(context.Background(), date)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valor UDI para %s: %s\n", raw, value)
		return nil
	},
}

// =============================================================================
// consultar-ccp-udis
// =============================================================================

var consultarCCPCmd = &cobra.Command{
	Use:   "consultar-ccp-udis",
	Short: "Consulta los valores mensuales de CCP-UDIS para un período",
	RunE: func(cmd *cobra.Command, args []string) error {
		rawFrom, _ := cmd.Flags().GetString("inicio")
		rawTo, _ := cmd.Flags().GetString("fin")

		from, err := mora.ParseMonthKey(rawFrom)
		if err != nil {
			return err
		}
		to, err := mora.ParseMonthKey(rawTo)
		if err != nil {
			return err
		}

		source, store, err := newSource()
		if err != nil {
			return err
		}
		defer store.Close()

		table, err := source.CCPTable(context.Background(), from, to)
		if err != nil {
			return err
		}

		months := make([]mora.MonthKey, 0, len(table))
		for month := range table {
			months = append(months, month)
		}
		sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Valores CCP-UDIS para el período %s a %s:\n", rawFrom, rawTo)
		for _, month := range months {
			fmt.Fprintf(out, "%s: %s%%\n", month, table[month])
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
