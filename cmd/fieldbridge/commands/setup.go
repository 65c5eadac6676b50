package commands

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/teleskop/fieldbridge/config"
	"github.com/teleskop/fieldbridge/errors"
	"github.com/teleskop/fieldbridge/logger"
	"github.com/teleskop/fieldbridge/mapping"
	"github.com/teleskop/fieldbridge/session"
	"github.com/teleskop/fieldbridge/store"
	"github.com/teleskop/fieldbridge/transform"
)

// workspace bundles the wiring every command needs: loaded config, the
// fixture store, and a session over the configured provider pair.
type workspace struct {
	cfg     *config.Config
	db      *sql.DB
	store   *store.SQLStore
	sess    *session.Session
	limiter *rate.Limiter // nil when fetches are unlimited
}

func (w *workspace) close() {
	if w.db != nil {
		w.db.Close()
	}
}

// openWorkspace loads config, opens the store, and assembles a session
// from the command's persistent flags.
func openWorkspace(cmd *cobra.Command) (*workspace, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	sourceID, _ := cmd.Flags().GetString("source")
	targetID, _ := cmd.Flags().GetString("target")
	if sourceID == "" || targetID == "" {
		return nil, errors.New("both --source and --target provider ids are required")
	}

	db, err := sql.Open("sqlite3", cfg.Database.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening database %s", cfg.Database.Path)
	}

	st := store.NewSQLStore(db, logger.Logger)
	if err := st.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	set, err := loadMappings(ctx, cmd, st)
	if err != nil {
		db.Close()
		return nil, err
	}

	recordIDs, err := st.RecordIDs(ctx, sourceID)
	if err != nil {
		db.Close()
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.Batch.FetchRatePerSecond > 0 {
		burst := cfg.Batch.FetchBurst
		if burst <= 0 {
			burst = cfg.Batch.PageSize
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Batch.FetchRatePerSecond), burst)
	}

	var custom *transform.CustomEvaluator
	if cfg.Transform.AllowCustom {
		timeout := transform.DefaultCustomTimeout
		if cfg.Transform.CustomTimeoutSeconds > 0 {
			timeout = time.Duration(cfg.Transform.CustomTimeoutSeconds) * time.Second
		}
		custom = transform.NewCustomEvaluator(timeout)
	}

	sess := session.New(session.Config{
		Source:     session.Scope{ProviderID: sourceID, ProjectID: cfg.Providers[sourceID].Project},
		Target:     session.Scope{ProviderID: targetID, ProjectID: cfg.Providers[targetID].Project},
		Catalogs:   st,
		Records:    st,
		Dispatcher: transform.NewDispatcher(custom),
		RecordIDs:  recordIDs,
		Mappings:   set,
		PageSize:   cfg.Batch.PageSize,
		Prefetch:   cfg.Batch.PrefetchWindow(),
		Limiter:    limiter,
	})

	return &workspace{cfg: cfg, db: db, store: st, sess: sess, limiter: limiter}, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadMappings reads the mapping set from the --mappings TOML file when
// given, otherwise from the stored set named "default".
func loadMappings(ctx context.Context, cmd *cobra.Command, st *store.SQLStore) (mapping.Set, error) {
	path, _ := cmd.Flags().GetString("mappings")
	if path != "" {
		return store.LoadMappingFile(path)
	}
	return st.LoadMappingSet(ctx, "default")
}
