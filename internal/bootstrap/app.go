package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"visioncloud-backend/internal/artworks"
	"visioncloud-backend/internal/fetch"
	"visioncloud-backend/internal/illustration"
	"visioncloud-backend/internal/llm"
	"visioncloud-backend/internal/llm/gemini"
	"visioncloud-backend/internal/llm/openai"
	"visioncloud-backend/internal/pinterest"
	"visioncloud-backend/internal/shared/config"
	"visioncloud-backend/internal/shared/server"
	"visioncloud-backend/internal/shared/storage/db"
	"visioncloud-backend/internal/shared/storage/object"
	gcsstore "visioncloud-backend/internal/shared/storage/object/gcs"
	localstore "visioncloud-backend/internal/shared/storage/object/local"
	s3store "visioncloud-backend/internal/shared/storage/object/s3"
	"visioncloud-backend/internal/shared/telemetry"
	"visioncloud-backend/internal/story"
	"visioncloud-backend/internal/vision"
	visioncloud "visioncloud-backend/internal/vision/cloud"
)

// Models are the generative clients used by the pipeline. Nil fields disable the
// corresponding stage, which then falls back.
type Models struct {
	Text  llm.TextGenerator
	Image llm.ImageGenerator
	// StoryText overrides Text for story generation.
	StoryText llm.TextGenerator
}

// Overrides replace externally backed dependencies, mainly in tests.
type Overrides struct {
	Annotator vision.Annotator
	Models    *Models
	Store     object.ObjectStore
	Sleeper   illustration.Sleeper
}

// App holds shared dependencies.
type App struct {
	Config       config.Config
	Router       *gin.Engine
	DB           *sql.DB
	Mongo        *mongo.Client
	Store        object.ObjectStore
	Records      artworks.Repo
	Repository   *artworks.Repository
	Artworks     *artworks.Service
	Fetcher      *fetch.Fetcher
	Pinterest    *pinterest.Service
	ArtworkRoute *artworks.Handler

	closers []func(context.Context) error
}

// Build prepares dependencies and the router from cfg.
func Build(cfg config.Config) (*App, error) {
	return BuildWith(cfg, Overrides{})
}

// BuildWith is Build with some dependencies supplied by the caller.
func BuildWith(cfg config.Config, ov Overrides) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if strings.TrimSpace(cfg.RecordStoreType) == "" {
		cfg.RecordStoreType = "memory"
	}
	telemetry.SetLevel(cfg.LogLevel)
	ctx := context.Background()
	app := &App{Config: cfg}

	store := ov.Store
	if store == nil {
		var err error
		if store, err = app.buildStore(ctx); err != nil {
			return nil, err
		}
	}
	app.Store = store

	records, err := app.buildRecords(ctx)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.Records = records
	app.Repository = artworks.NewRepository(records, store)

	annotator := ov.Annotator
	if annotator == nil {
		if annotator, err = app.buildAnnotator(ctx); err != nil {
			app.Close(ctx)
			return nil, err
		}
	}

	models := ov.Models
	if models == nil {
		if models, err = buildModels(ctx, cfg); err != nil {
			app.Close(ctx)
			return nil, err
		}
	}
	limiter := llm.NewLimiter(cfg.ProviderRatePerMinute)
	text := llm.LimitText(models.Text, limiter)
	image := llm.LimitImage(models.Image, limiter)
	storyText := text
	if models.StoryText != nil {
		storyText = llm.LimitText(models.StoryText, limiter)
	}

	var opts []illustration.Option
	if ov.Sleeper != nil {
		opts = append(opts, illustration.WithSleeper(ov.Sleeper))
	}
	app.Fetcher = fetch.New(cfg.MaxUploadBytes, cfg.ProxyCacheTTL)
	app.Artworks = &artworks.Service{
		Extractor:       vision.NewExtractor(annotator, cfg.ProviderCallTimeout),
		Stories:         story.NewGenerator(storyText, cfg.ProviderCallTimeout),
		Illustrator:     illustration.NewGenerator(text, image, policyFromConfig(cfg), opts...),
		Repo:            app.Repository,
		Fetcher:         app.Fetcher,
		PipelineTimeout: cfg.PipelineTimeout,
	}
	app.ArtworkRoute = artworks.NewHandler(app.Artworks, cfg.MaxUploadBytes)
	app.Pinterest = pinterest.NewService(pinterest.Config{
		AppID:        cfg.PinterestAppID,
		AppSecret:    cfg.PinterestAppSecret,
		RedirectURL:  cfg.PinterestRedirectURL,
		UIBaseURL:    cfg.UIBaseURL,
		SessionTTL:   cfg.SessionTTL,
		SecureCookie: cfg.Env == "production",
	})

	deps := server.RouterDeps{
		Config:         cfg,
		ArtworkHandler: app.ArtworkRoute,
		ProxyHandler:   fetch.NewHandler(app.Fetcher),
		Pinterest:      app.Pinterest,
		Ready:          app.Ready,
	}
	if local, ok := store.(*localstore.Store); ok {
		deps.FilesDir = local.Dir()
	}
	app.Router = server.NewRouter(deps)
	return app, nil
}

// Ready reports whether the record store is reachable.
func (a *App) Ready(ctx context.Context) error {
	switch {
	case a.DB != nil:
		return a.DB.PingContext(ctx)
	case a.Mongo != nil:
		return a.Mongo.Ping(ctx, nil)
	default:
		return nil
	}
}

// Close releases clients in reverse construction order.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

func (a *App) buildStore(ctx context.Context) (object.ObjectStore, error) {
	cfg := a.Config
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.S3PublicURL)
	case "gcs":
		store, err := gcsstore.New(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return store.Close() })
		return store, nil
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.PublicBaseURL+"/files"), nil
	}
}

func (a *App) buildRecords(ctx context.Context) (artworks.Repo, error) {
	cfg := a.Config
	switch cfg.RecordStoreType {
	case "postgres":
		sqlDB, err := a.buildDB(ctx)
		if err != nil {
			return nil, err
		}
		if sqlDB == nil {
			return artworks.NewMemoryRepo(), nil
		}
		return &artworks.PGRepo{DB: sqlDB}, nil
	case "mongo":
		return a.buildMongo(ctx)
	default:
		return artworks.NewMemoryRepo(), nil
	}
}

func (a *App) buildDB(ctx context.Context) (*sql.DB, error) {
	cfg := a.Config
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_fallback", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
		if err != nil {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_fallback", map[string]any{"reason": "database unavailable", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	a.DB = sqlDB
	a.onClose(func(context.Context) error { return sqlDB.Close() })
	return sqlDB, nil
}

func (a *App) buildMongo(ctx context.Context) (artworks.Repo, error) {
	cfg := a.Config
	if strings.TrimSpace(cfg.MongoURI) == "" {
		return nil, errors.New("RECORD_STORE=mongo requires MONGO_URI")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	a.onClose(client.Disconnect)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	repo := artworks.NewMongoRepo(client.Database(cfg.MongoDatabase))
	if err := repo.EnsureIndexes(pingCtx); err != nil {
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	a.Mongo = client
	telemetry.Info("bootstrap.mongo", map[string]any{"database": cfg.MongoDatabase})
	return repo, nil
}

func (a *App) buildAnnotator(ctx context.Context) (vision.Annotator, error) {
	switch a.Config.VisionProvider {
	case "none":
		telemetry.Warn("bootstrap.vision_disabled", map[string]any{"provider": "none"})
		return vision.NopAnnotator{}, nil
	default:
		annotator, err := visioncloud.New(ctx, a.Config.VisionCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("vision client: %w", err)
		}
		a.onClose(func(context.Context) error { return annotator.Close() })
		return annotator, nil
	}
}

// buildModels wires Gemini for images and two-step descriptions. LLM_PROVIDER=openai moves
// story generation to OpenAI; Gemini is still used for images when a key is present.
func buildModels(ctx context.Context, cfg config.Config) (*Models, error) {
	m := &Models{}
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		client, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiTextModel, cfg.GeminiImageModel)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		m.Text = client
		m.Image = client
	} else {
		telemetry.Warn("bootstrap.gemini_disabled", map[string]any{"reason": "GEMINI_API_KEY empty"})
	}

	if cfg.LLMProvider == "openai" {
		client, err := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		m.StoryText = client
	}
	return m, nil
}

func policyFromConfig(cfg config.Config) illustration.Policy {
	p := illustration.DefaultPolicy()
	if cfg.SectionDelay > 0 {
		p.SectionDelay = cfg.SectionDelay
	}
	if cfg.RetryDelay > 0 {
		p.RetryDelay = cfg.RetryDelay
	}
	if cfg.TwoStepDelay > 0 {
		p.TwoStepDelay = cfg.TwoStepDelay
	}
	if cfg.FinalAttemptDelay > 0 {
		p.FinalAttemptDelay = cfg.FinalAttemptDelay
	}
	if cfg.ProviderCallTimeout > 0 {
		p.CallTimeout = cfg.ProviderCallTimeout
	}
	return p
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
