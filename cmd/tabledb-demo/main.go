// Command tabledb-demo runs a full table lifecycle against a configured
// MySQL server: connect, create a temporary table, insert, select, update,
// check existence, delete and drop.
//
// Connection settings come from a config file (-config) or from TABLEDB_*
// environment variables; a .env file in the working directory is loaded
// first if present.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/nikhilpatra/tabledb/pkg/tabledb"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML or JSON config file (default: environment)")
		logLevel   = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(*logLevel); err == nil {
		logger = logger.Level(level)
	}

	// .env is optional; environment wins over it either way.
	_ = godotenv.Load()

	var (
		cfg tabledb.Config
		err error
	)
	if *configPath != "" {
		cfg, err = tabledb.LoadConfig(*configPath)
	} else {
		cfg, err = tabledb.LoadConfigFromEnv()
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := tabledb.ConnectContext(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect")
	}
	defer db.Close()

	schema := tabledb.Schema{
		{Name: "id", Type: "INT AUTO_INCREMENT"},
		{Name: "name", Type: "VARCHAR(255)"},
		{Name: "score", Type: "INT"},
	}

	tbl, err := db.CreateTemporaryTableContext(ctx, "demo", schema, []string{"id"})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create temporary table")
	}
	logger.Info().Str("table", tbl.Name()).Msg("Temporary table created")

	id, err := tbl.InsertContext(ctx, tabledb.Values{
		{Col: "name", Value: "alice"},
		{Col: "score", Value: 10},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Insert failed")
	}
	logger.Info().Int64("id", id).Msg("Inserted row")

	if _, err := tbl.InsertContext(ctx, tabledb.Values{
		{Col: "name", Value: "bob"},
		{Col: "score", Value: 7},
	}); err != nil {
		logger.Fatal().Err(err).Msg("Insert failed")
	}

	rows, err := tbl.SelectContext(ctx, []tabledb.Cond{tabledb.In("name", "alice", "bob")}, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("Select failed")
	}
	for _, row := range rows {
		logger.Info().Any("row", row).Msg("Selected")
	}

	if err := tbl.UpdateContext(ctx,
		[]tabledb.Cond{tabledb.Eq("id", id)},
		tabledb.Values{{Col: "score", Value: 11}},
	); err != nil {
		logger.Fatal().Err(err).Msg("Update failed")
	}

	ok, err := tbl.ExistsContext(ctx, []tabledb.Cond{tabledb.Eq("score", 11)})
	if err != nil {
		logger.Fatal().Err(err).Msg("Exists failed")
	}
	logger.Info().Bool("exists", ok).Msg("Checked for updated row")

	if err := tbl.DeleteContext(ctx, []tabledb.Cond{tabledb.Eq("name", "bob")}); err != nil {
		logger.Fatal().Err(err).Msg("Delete failed")
	}

	if err := db.DropTableContext(ctx, tbl.Name()); err != nil {
		logger.Fatal().Err(err).Msg("Drop failed")
	}
	logger.Info().Msg("Done")
}
