package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gzhole/scriptshield/internal/threat"
)

var catalogPacksDir string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the threat-pattern families the engine scores against",
	Long: `List the built-in threat-pattern families followed by those added by packs.

Packs are YAML files in ~/.scriptshield/packs/ that append families to the
built-in catalog. Files whose name starts with "_" are listed but not applied.

Examples:
  scriptshield catalog
  scriptshield catalog --packs ./packs`,
	RunE: catalogCommand,
}

func init() {
	catalogCmd.Flags().StringVar(&catalogPacksDir, "packs", "", "Packs directory (default from config)")
	rootCmd.AddCommand(catalogCmd)
}

func catalogCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	zl, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	dir := cfg.PacksDir
	if catalogPacksDir != "" {
		dir = catalogPacksDir
	}
	catalog, infos, err := loadCatalog(dir, zl)
	if err != nil {
		return err
	}

	printCatalog(cmd.OutOrStdout(), catalog, infos, dir)
	return nil
}

func printCatalog(w io.Writer, catalog *threat.Catalog, infos []threat.PackInfo, dir string) {
	builtin := threat.Default()

	fmt.Fprintln(w, "Threat Families:")
	fmt.Fprintln(w, strings.Repeat("─", 60))
	for _, f := range catalog.Families() {
		origin := "pack"
		if _, ok := builtin.Lookup(f.ID); ok {
			origin = "built-in"
		}
		multiplier := ""
		if f.CountMultiplier {
			multiplier = " x count"
		}
		fmt.Fprintf(w, "  %-24s %-22s weight %2d%s  (%s, %d patterns)\n",
			f.ID, f.Category, f.Weight, multiplier, origin, len(f.Patterns))
	}
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "  %d families\n", catalog.Len())

	if len(infos) == 0 {
		fmt.Fprintf(w, "\nNo packs installed in %s\n", dir)
		return
	}

	fmt.Fprintln(w, "\nPacks:")
	for _, info := range infos {
		status := "\xe2\x9c\x85" // check mark
		if !info.Enabled {
			status = "\xe2\x9d\x8c" // cross mark
		}
		if info.Err != nil {
			status = "\xe2\x9a\xa0" // warning sign
		}
		fmt.Fprintf(w, "  %s  %-25s %s\n", status, info.Name, info.Description)
		if info.Err != nil {
			fmt.Fprintf(w, "       error: %v\n", info.Err)
		} else if info.Version != "" {
			fmt.Fprintf(w, "       v%s by %s  (%d families)\n", info.Version, info.Author, info.FamilyCount)
		}
	}
	fmt.Fprintf(w, "\nPacks directory: %s\n", dir)
}
