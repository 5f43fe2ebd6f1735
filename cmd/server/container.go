package main

import (
	"context"
	"log"
	"os"

	"github.com/Abraxas-365/craftable/ai/llm"
	"github.com/Abraxas-365/craftable/ai/providers/aiopenai"
	"github.com/Abraxas-365/craftable/eventx"
	"github.com/Abraxas-365/craftable/eventx/providers/eventxmemory"

	"github.com/Abraxas-365/relay/channels"
	whatsappchannel "github.com/Abraxas-365/relay/channels/channeladapters/whatssapp"
	"github.com/Abraxas-365/relay/channels/channelapi"
	"github.com/Abraxas-365/relay/channels/channelsinfra"

	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/engine/channeladapter"
	"github.com/Abraxas-365/relay/engine/channeladapter/email"
	"github.com/Abraxas-365/relay/engine/channeladapter/facebook"
	"github.com/Abraxas-365/relay/engine/channeladapter/instagram"
	"github.com/Abraxas-365/relay/engine/channeladapter/sms"
	"github.com/Abraxas-365/relay/engine/channeladapter/telegram"
	"github.com/Abraxas-365/relay/engine/channeladapter/whatsapp"
	"github.com/Abraxas-365/relay/engine/channeldispatch"
	"github.com/Abraxas-365/relay/engine/delayscheduler"
	"github.com/Abraxas-365/relay/engine/flowapi"
	"github.com/Abraxas-365/relay/engine/intake"
	"github.com/Abraxas-365/relay/engine/internalproc"
	"github.com/Abraxas-365/relay/engine/mediastore"
	"github.com/Abraxas-365/relay/engine/nodewalker"
	"github.com/Abraxas-365/relay/engine/orchestrator"
	"github.com/Abraxas-365/relay/engine/replyvalidator"
	"github.com/Abraxas-365/relay/engine/triggermatcher"
	"github.com/Abraxas-365/relay/engine/txrecorder"
	"github.com/Abraxas-365/relay/engine/webhookapi"

	"github.com/Abraxas-365/relay/iam"
	"github.com/Abraxas-365/relay/iam/auth"
	"github.com/Abraxas-365/relay/iam/auth/authinfra"
	"github.com/Abraxas-365/relay/iam/role"
	"github.com/Abraxas-365/relay/iam/role/roleinfra"
	"github.com/Abraxas-365/relay/iam/role/rolesrv"
	"github.com/Abraxas-365/relay/iam/tenant"
	"github.com/Abraxas-365/relay/iam/tenant/tenantinfra"
	"github.com/Abraxas-365/relay/iam/user"
	"github.com/Abraxas-365/relay/iam/user/userinfra"
	"github.com/Abraxas-365/relay/iam/user/usersrv"

	"github.com/Abraxas-365/relay/pkg/config"

	"github.com/Abraxas-365/relay/store"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
)

// Container contains all application dependencies
type Container struct {
	// =================================================================
	// CONFIGURATION & INFRASTRUCTURE
	// =================================================================
	Config      *config.Config
	DB          *sqlx.DB
	RedisClient *redis.Client

	// =================================================================
	// EVENT BUS ⚡
	// =================================================================
	EventBus eventx.EventBus

	// =================================================================
	// IAM - REPOSITORIES
	// =================================================================
	UserRepo     user.UserRepository
	UserRoleRepo user.UserRoleRepository
	TenantRepo   tenant.TenantRepository
	RoleRepo     role.RoleRepository
	RolePermRepo role.RolePermissionRepository

	// =================================================================
	// IAM - SERVICES
	// =================================================================
	PasswordService user.PasswordService
	UserService     *usersrv.UserService
	RoleService     *rolesrv.RoleService

	// =================================================================
	// AUTH
	// =================================================================
	TokenRepo         auth.TokenRepository
	SessionRepo       auth.SessionRepository
	PasswordResetRepo auth.PasswordResetRepository
	StateManager      auth.StateManager
	TokenService      auth.TokenService
	OAuthServices     map[iam.OAuthProvider]auth.OAuthService
	AuthHandlers      *auth.AuthHandlers
	AuthMiddleware    *auth.AuthMiddleware

	// =================================================================
	// CHANNELS (per-provider webhook decode/delivery)
	// =================================================================
	ChannelRepo channels.ChannelRepository

	WhatsAppAdapter *whatsappchannel.WhatsAppAdapter

	ChannelHandler         *channelapi.ChannelHandler
	WhatsAppWebhookHandler *whatsappchannel.WebhookHandler
	WhatsAppWebhookRoutes  *whatsappchannel.WebhookRoutes

	// =================================================================
	// ENGINE — flow automation (spec §4)
	// =================================================================
	FlowRepo               engine.FlowRepository
	TriggerRepo            engine.TriggerRepository
	UserStateRepo          engine.UserRepository
	FlowUserContextRepo    engine.FlowUserContextRepository
	WebhookMessageRepo     engine.WebhookMessageRepository
	DelayRepo              engine.DelayRepository
	UserTransactionRepo    engine.UserTransactionRepository
	FlowSettingsRepo       engine.FlowSettingsRepository
	NodeDetailRepo         engine.NodeDetailRepository
	BrandLookup            engine.BrandLookup
	ChannelAdapterRegistry *channeladapter.Registry

	ExpressionEvaluator engine.ExpressionEvaluator
	TriggerMatcher      engine.TriggerMatcher
	ReplyValidator      engine.ReplyValidator
	InternalNodeProc    engine.InternalNodeProcessor
	TransactionRecorder engine.TransactionRecorder
	ChannelDispatcher   engine.ChannelDispatcher
	MediaRehoster       engine.MediaRehoster
	NodeWalker          engine.NodeWalker
	DelayScheduler      engine.DelayScheduler
	Orchestrator        *orchestrator.Orchestrator
	Intake              engine.Intake

	FlowHandler    *flowapi.Handler
	WebhookHandler *webhookapi.Handler

	// =================================================================
	// AI/LLM 🤖
	// =================================================================
	LLMClient *llm.Client
}

// NewContainer creates a new dependency container
func NewContainer(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client) *Container {
	c := &Container{
		Config:      cfg,
		DB:          db,
		RedisClient: redisClient,
	}

	// Initialize dependencies in the correct order
	log.Println("📦 Initializing dependency container...")

	c.initEventBus()
	c.initIAMRepositories()
	c.initIAMServices()
	c.initAuthServices()
	c.initLLMComponents()     // LLM
	c.initChannelComponents() // ⚡ Channels BEFORE engine (webhook decode/delivery)
	c.initEngineComponents()  // ⚙️ Flow automation engine

	log.Println("✅ Dependency container initialized successfully")

	return c
}

// =================================================================
// EVENT BUS INITIALIZATION ⚡
// =================================================================

func (c *Container) initEventBus() {
	log.Println("  ⚡ Initializing event bus...")

	busConfig := eventx.BusConfig{
		ConnectionName:    "relay-event-bus",
		EnableLogging:     true,
		EnableMetrics:     true,
		EnablePersistence: false,
		AutoAck:           true,
		MaxRetries:        3,
	}

	c.EventBus = eventxmemory.New(busConfig)

	ctx := context.Background()
	if err := c.EventBus.Connect(ctx); err != nil {
		log.Fatalf("❌ Failed to connect event bus: %v", err)
	}

	log.Println("  ✅ Event bus initialized and connected")
}

// =================================================================
// IAM INITIALIZATION
// =================================================================

func (c *Container) initIAMRepositories() {
	log.Println("  👥 Initializing IAM repositories...")
	c.UserRepo = userinfra.NewPostgresUserRepository(c.DB)
	c.UserRoleRepo = userinfra.NewPostgresUserRoleRepository(c.DB)
	c.TenantRepo = tenantinfra.NewPostgresTenantRepository(c.DB)
	c.RoleRepo = roleinfra.NewPostgresRoleRepository(c.DB)
	c.RolePermRepo = roleinfra.NewPostgresRolePermissionRepository(c.DB)
}

func (c *Container) initIAMServices() {
	log.Println("  👥 Initializing IAM services...")
	c.PasswordService = authinfra.NewBcryptPasswordService()

	c.UserService = usersrv.NewUserService(
		c.UserRepo,
		c.UserRoleRepo,
		c.TenantRepo,
		c.RoleRepo,
		c.PasswordService,
	)

	c.RoleService = rolesrv.NewRoleService(
		c.RoleRepo,
		c.RolePermRepo,
		c.TenantRepo,
	)
}

func (c *Container) initAuthServices() {
	log.Println("  🔐 Initializing auth services...")

	c.TokenRepo = authinfra.NewPostgresTokenRepository(c.DB)
	c.SessionRepo = authinfra.NewPostgresSessionRepository(c.DB)
	c.PasswordResetRepo = authinfra.NewPostgresPasswordResetRepository(c.DB)
	c.StateManager = authinfra.NewRedisStateManager(c.RedisClient)

	c.TokenService = auth.NewJWTService(
		c.Config.Auth.JWT.SecretKey,
		c.Config.Auth.JWT.AccessTokenTTL,
		c.Config.Auth.JWT.RefreshTokenTTL,
		c.Config.Auth.JWT.Issuer,
	)

	c.OAuthServices = make(map[iam.OAuthProvider]auth.OAuthService)

	if c.Config.Auth.OAuth.Google.IsEnabled() {
		c.OAuthServices[iam.OAuthProviderGoogle] = auth.NewGoogleOAuthService(
			c.Config.Auth.OAuth.Google,
			c.StateManager,
		)
	}

	if c.Config.Auth.OAuth.Microsoft.IsEnabled() {
		c.OAuthServices[iam.OAuthProviderMicrosoft] = auth.NewMicrosoftOAuthService(
			c.Config.Auth.OAuth.Microsoft,
			c.StateManager,
		)
	}

	c.AuthHandlers = auth.NewAuthHandlers(
		c.OAuthServices,
		c.TokenService,
		c.UserRepo,
		c.TenantRepo,
		c.TokenRepo,
		c.SessionRepo,
		c.StateManager,
	)

	c.AuthMiddleware = auth.NewAuthMiddleware(c.TokenService)
}

// =================================================================
// LLM INITIALIZATION 🤖
// =================================================================

func (c *Container) initLLMComponents() {
	log.Println("  🤖 Initializing LLM components...")

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Println("  ⚠️  OPENAI_API_KEY not set, LLM client will be disabled")
		return
	}

	client := aiopenai.NewOpenAIProvider(apiKey)
	c.LLMClient = llm.NewClient(client)

	log.Println("  ✅ LLM components initialized")
}

// =================================================================
// CHANNELS INITIALIZATION 📡 (per-provider webhook decode/delivery)
// =================================================================

func (c *Container) initChannelComponents() {
	log.Println("  📡 Initializing channel components...")

	c.ChannelRepo = channelsinfra.NewPostgresChannelRepository(c.DB)
	log.Println("    ✅ Channel repository initialized")

	c.WhatsAppAdapter = whatsappchannel.NewWhatsAppAdapter(
		channels.WhatsAppConfig{}, // Empty config, overridden per channel
		c.RedisClient,
	)

	log.Println("  ✅ Channel components initialized")
}

// =================================================================
// ENGINE INITIALIZATION ⚙️ — flow automation (spec §4)
// =================================================================

func (c *Container) initEngineComponents() {
	log.Println("  ⚙️  Initializing flow automation engine...")

	c.FlowRepo = store.NewPostgresFlowRepository(c.DB)
	c.TriggerRepo = store.NewPostgresTriggerRepository(c.DB)
	c.UserStateRepo = store.NewPostgresUserRepository(c.DB)
	c.FlowUserContextRepo = store.NewPostgresFlowUserContextRepository(c.DB)
	c.WebhookMessageRepo = store.NewPostgresWebhookMessageRepository(c.DB)
	c.DelayRepo = store.NewPostgresDelayRepository(c.DB)
	c.UserTransactionRepo = store.NewPostgresUserTransactionRepository(c.DB)
	c.FlowSettingsRepo = store.NewPostgresFlowSettingsRepository(c.DB)
	c.BrandLookup = store.NewPostgresBrandLookup(c.DB)

	rawNodeDetails := store.NewPostgresNodeDetailRepository(c.DB)
	cachedNodeDetails, err := store.NewNodeDetailCache(rawNodeDetails, c.Config.ChannelDelivery.NodeDetailCacheN)
	if err != nil {
		log.Fatalf("❌ Failed to initialize node detail cache: %v", err)
	}
	c.NodeDetailRepo = cachedNodeDetails
	log.Println("    ✅ Repositories initialized")

	c.ChannelAdapterRegistry = channeladapter.NewRegistry(
		whatsapp.New(),
		instagram.New(),
		telegram.New(),
		facebook.New(),
		sms.New(),
		email.New(),
	)
	log.Println("    ✅ Channel adapter registry initialized")

	c.ExpressionEvaluator = engine.NewCelEvaluator()
	c.TriggerMatcher = triggermatcher.New(c.TriggerRepo)
	c.ReplyValidator = replyvalidator.New(c.FlowUserContextRepo)
	c.InternalNodeProc = internalproc.New(c.FlowUserContextRepo)
	c.TransactionRecorder = txrecorder.New(c.UserTransactionRepo)
	c.ChannelDispatcher = channeldispatch.New(c.Config.ChannelDelivery.Endpoint)
	if c.Config.Media.Enabled {
		c.MediaRehoster = mediastore.New(mediastore.Config{
			Bucket:          c.Config.Media.S3Bucket,
			Region:          c.Config.Media.S3Region,
			AccessKeyID:     c.Config.Media.S3AccessKeyID,
			SecretAccessKey: c.Config.Media.S3SecretAccessKey,
			Endpoint:        c.Config.Media.S3Endpoint,
		})
		log.Println("    ✅ Media rehoster initialized (S3)")
	} else {
		c.MediaRehoster = intake.NoopMediaRehoster{}
		log.Println("    ⚠️  MEDIA_S3_BUCKET not set, media rehosting disabled")
	}
	log.Println("    ✅ Collaborators initialized")

	c.NodeWalker = nodewalker.New(
		c.FlowRepo,
		c.InternalNodeProc,
		c.ChannelDispatcher,
		c.TransactionRecorder,
		c.FlowUserContextRepo,
		c.ExpressionEvaluator,
		c.FlowSettingsRepo,
	)

	// orchestrator.New necesita un DelayScheduler ya construido y
	// delayscheduler.New necesita el OnDueFunc del Orchestrator: se resuelve
	// con una variable adelantada, capturada por la clausura del scheduler
	// (engine/delayscheduler documenta este desacople para evitar el import
	// cycle entre delayscheduler y orchestrator/intake).
	var orch *orchestrator.Orchestrator
	c.DelayScheduler = delayscheduler.New(
		c.DelayRepo,
		c.RedisClient,
		func(ctx context.Context, d engine.Delay) error { return orch.HandleDelayDue(ctx, d) },
		c.Config.ChannelDelivery.DelayPollEvery,
	)

	orch = orchestrator.New(
		c.UserStateRepo,
		c.FlowRepo,
		c.TriggerMatcher,
		c.ReplyValidator,
		c.NodeWalker,
		c.NodeDetailRepo,
		c.DelayRepo,
		c.DelayScheduler,
		nil, // LeadAcquirer: sin CRM configurado, usa engine.NoopLeadAcquirer
	)
	c.Orchestrator = orch
	log.Println("    ✅ Orchestrator and delay scheduler wired")

	ctx := context.Background()
	c.DelayScheduler.StartWorker(ctx)
	log.Println("    ✅ Delay scheduler worker started")

	c.Intake = intake.New(
		c.WebhookMessageRepo,
		c.ChannelAdapterRegistry,
		c.Orchestrator,
		nil, // ScheduledTriggerHandler: sin servicio de campañas, usa el Noop
		c.MediaRehoster,
	)

	c.ChannelHandler = channelapi.NewChannelHandler(c.Intake)
	c.FlowHandler = flowapi.New(c.FlowRepo, c.TriggerRepo, c.NodeDetailRepo, c.ChannelDispatcher, c.BrandLookup)
	c.WebhookHandler = webhookapi.New(c.Intake)
	log.Println("    ✅ Intake and HTTP handlers initialized")

	c.WhatsAppWebhookHandler = whatsappchannel.NewWebhookHandler(
		c.ChannelRepo,
		c.WhatsAppAdapter,
	)

	c.WhatsAppWebhookRoutes = whatsappchannel.NewWebhookRoutes(
		c.WhatsAppWebhookHandler,
		c.ChannelHandler.ProcessIncomingMessage,
	)
	log.Println("    ✅ WhatsApp webhook routes initialized")

	log.Println("  ✅ Flow automation engine initialized")
}

// =================================================================
// UTILITY METHODS
// =================================================================

func (c *Container) GetAllRoutes() []RouteGroup {
	routes := []RouteGroup{
		{Name: "auth", Handler: c.AuthHandlers},
		{Name: "whatsapp_webhook", Handler: c.WhatsAppWebhookHandler},
		{Name: "channel_api", Handler: c.ChannelHandler},
		{Name: "flow_api", Handler: c.FlowHandler},
		{Name: "webhook_api", Handler: c.WebhookHandler},
	}
	return routes
}

type RouteGroup struct {
	Name    string
	Handler any
}

func (c *Container) Cleanup() {
	log.Println("🧹 Cleaning up container resources...")

	if c.DelayScheduler != nil {
		log.Println("  ⏰ Stopping delay scheduler...")
		c.DelayScheduler.StopWorker()
	}

	if c.EventBus != nil {
		log.Println("  ⚡ Disconnecting event bus...")
		ctx := context.Background()
		if err := c.EventBus.Disconnect(ctx); err != nil {
			log.Printf("  ⚠️  Failed to disconnect event bus: %v", err)
		}
	}

	if c.DB != nil {
		log.Println("  🗄️  Closing database connections...")
		c.DB.Close()
	}

	if c.RedisClient != nil {
		log.Println("  🔴 Closing Redis connections...")
		c.RedisClient.Close()
	}

	log.Println("✅ Container cleanup complete")
}

func (c *Container) HealthCheck() map[string]bool {
	health := make(map[string]bool)

	if c.DB != nil {
		err := c.DB.Ping()
		health["database"] = err == nil
	} else {
		health["database"] = false
	}

	if c.RedisClient != nil {
		err := c.RedisClient.Ping(c.RedisClient.Context()).Err()
		health["redis"] = err == nil
	} else {
		health["redis"] = false
	}

	if c.EventBus != nil {
		health["event_bus"] = c.EventBus.IsConnected()
	} else {
		health["event_bus"] = false
	}

	health["orchestrator"] = c.Orchestrator != nil
	health["intake"] = c.Intake != nil
	health["whatsapp_adapter"] = c.WhatsAppAdapter != nil
	health["delay_scheduler"] = c.DelayScheduler != nil
	health["media_rehoster"] = c.Config.Media.Enabled

	return health
}

func (c *Container) GetEventBusMetrics() eventx.BusMetrics {
	if metricsbus, ok := c.EventBus.(eventx.MetricsEventBus); ok {
		return metricsbus.GetMetrics()
	}
	return eventx.BusMetrics{}
}

func (c *Container) GetServiceNames() []string {
	return []string{
		"UserService",
		"RoleService",
		"Orchestrator",
		"Intake",
		"NodeWalker",
		"EventBus",
		"DelayScheduler",
	}
}

func (c *Container) GetRepositoryNames() []string {
	return []string{
		"UserRepo",
		"TenantRepo",
		"RoleRepo",
		"ChannelRepo",
		"FlowRepo",
		"TriggerRepo",
		"UserStateRepo",
		"FlowUserContextRepo",
		"WebhookMessageRepo",
		"DelayRepo",
		"UserTransactionRepo",
		"FlowSettingsRepo",
		"NodeDetailRepo",
	}
}

func (c *Container) GetChannelAdapterNames() []string {
	adapters := []string{"whatsapp", "instagram", "telegram", "facebook", "sms", "email"}
	return adapters
}

// GetDelaySchedulerMetrics retorna el número de delays pendientes.
func (c *Container) GetDelaySchedulerMetrics(ctx context.Context) (int64, error) {
	if c.DelayScheduler != nil {
		return c.DelayScheduler.GetPendingCount(ctx)
	}
	return 0, nil
}
