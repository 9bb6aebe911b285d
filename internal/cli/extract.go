package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fortuna/hoopstats/internal/boxscore"
	"github.com/fortuna/hoopstats/internal/dataset"
	"github.com/fortuna/hoopstats/internal/pages"
	"github.com/fortuna/hoopstats/internal/publisher"
	"github.com/fortuna/hoopstats/internal/store"
	"github.com/fortuna/hoopstats/internal/store/repository"
)

var (
	flagOutput     string
	flagFormat     string
	flagUpload     string
	flagWriteAtlas bool
)

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Build the team-game table from cached box scores",
		RunE:  runExtract,
	}
	cmd.Flags().StringVar(&flagOutput, "output", "", "Output file (overrides config)")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format: csv or parquet (overrides config)")
	cmd.Flags().StringVar(&flagUpload, "upload", "", "Upload the output to s3://bucket/key (overrides config)")
	cmd.Flags().BoolVar(&flagWriteAtlas, "atlas", false, "Also replace the team_games table in Atlas")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if flagOutput != "" {
		cfg.Extract.Output = flagOutput
	}
	if flagFormat != "" {
		cfg.Extract.Format = flagFormat
	}
	if flagUpload != "" {
		cfg.Extract.UploadURI = flagUpload
	}
	if flagWriteAtlas {
		cfg.Extract.WriteAtlas = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	scores, err := pages.NewStore(cfg.ScoresDir())
	if err != nil {
		return fmt.Errorf("initializing score store: %w", err)
	}

	opts := boxscore.Options{}
	var reporter *publisher.StreamReporter
	rc := connectRedis(ctx, cfg, logger)
	if rc != nil {
		defer rc.Close()
		reporter = publisher.NewStreamReporter(publisher.NewRedisStreamPublisher(rc.Client()), publisher.NewRunID(), logger)
		opts.Progress = reporter.OnExtractProgress
	}

	extractor := boxscore.NewExtractor(scores, opts, logger)
	table, err := extractor.Run(ctx)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	if err := dataset.WriteFile(cfg.Extract.Output, cfg.Extract.Format, table); err != nil {
		return fmt.Errorf("writing %s: %w", cfg.Extract.Output, err)
	}
	logger.Info("wrote dataset", zap.String("path", cfg.Extract.Output), zap.Int("rows", table.Len()))

	if cfg.Extract.UploadURI != "" {
		uploader, err := dataset.NewUploader(ctx)
		if err != nil {
			return err
		}
		if err := uploader.Upload(ctx, cfg.Extract.Output, cfg.Extract.UploadURI); err != nil {
			return err
		}
		logger.Info("uploaded dataset", zap.String("uri", cfg.Extract.UploadURI))
	}

	if cfg.Extract.WriteAtlas {
		if err := loadAtlas(cmd, cfg.AtlasDSN, table, logger); err != nil {
			return err
		}
	}

	if rc != nil {
		if err := rc.SaveSchema(ctx, statColumns(table)); err != nil {
			logger.Warn("failed to save schema", zap.Error(err))
		}
		reporter.OnExtractComplete(table.Len()/2, table.Len())
	}
	return nil
}

func loadAtlas(cmd *cobra.Command, dsn string, table *dataset.Table, logger *zap.Logger) error {
	if dsn == "" {
		return fmt.Errorf("writing to Atlas requires atlas_dsn or ATLAS_DSN")
	}
	ctx := cmd.Context()

	db, err := store.NewDatabase(ctx, dsn, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.RunMigrations(ctx); err != nil {
		return err
	}

	games, err := store.FromTable(table)
	if err != nil {
		return err
	}
	if err := repository.NewTeamGameRepository(db).ReplaceAll(ctx, games); err != nil {
		return fmt.Errorf("loading team_games: %w", err)
	}
	logger.Info("loaded team_games", zap.Int("rows", len(games)))
	return nil
}

// statColumns lists the per-team statistic columns, without the opponent
// copies and identity columns.
func statColumns(table *dataset.Table) []string {
	var cols []string
	for _, c := range table.Columns() {
		if c.Name == store.ColTeam {
			break
		}
		cols = append(cols, c.Name)
	}
	return cols
}
