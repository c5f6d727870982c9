package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/strait-labs/straitd/common"
	"github.com/strait-labs/straitd/internal/core/application"
	"github.com/strait-labs/straitd/internal/core/domain"
	"github.com/strait-labs/straitd/internal/core/ports"
	"github.com/strait-labs/straitd/internal/infrastructure/db"
	inmemoryledger "github.com/strait-labs/straitd/internal/infrastructure/ledger/inmemory"
	inmemorylivestore "github.com/strait-labs/straitd/internal/infrastructure/live-store/inmemory"
	redislivestore "github.com/strait-labs/straitd/internal/infrastructure/live-store/redis"
	localrelay "github.com/strait-labs/straitd/internal/infrastructure/relay/local"
	timescheduler "github.com/strait-labs/straitd/internal/infrastructure/scheduler/gocron"
	"github.com/urfave/cli/v2"
)

const minTransferTimeout = 30

var (
	supportedEventDbs = supportedType{
		"watermill": {},
	}
	supportedDbs = supportedType{
		"badger": {},
	}
	supportedSchedulers = supportedType{
		"gocron": {},
	}
	supportedLedgers = supportedType{
		"inmemory": {},
	}
	supportedRelays = supportedType{
		"local": {},
	}
	supportedLiveStores = supportedType{
		"inmemory": {},
		"redis":    {},
	}
)

// ledger accounts held by the daemon on the home domain
const (
	vaultAccount  = "vault"
	engineAccount = "engine"
)

// LedgerSeed provisions a holder with an opening balance on the in-process
// ledger, used to fund reserves and the bridge account at startup.
type LedgerSeed struct {
	Holder string
	Asset  string
	Amount uint64
}

type Config struct {
	Datadir  string
	Port     uint32
	LogLevel int

	DbType      string
	EventDbType string
	DbDir       string

	SchedulerType       string
	LedgerType          string
	RelayType           string
	RelayKey            string
	LiveStoreType       string
	RedisUrl            string
	RedisTxNumOfRetries int

	HomeDomain      string
	RemoteDomains   []string
	BaseAsset       string
	CounterAsset    string
	ForwardRate     uint64
	TransferTimeout int64

	OperatorToken  string
	BridgeToken    string
	BridgeAccount  string
	AllowedOrigins []string
	LedgerSeeds    []LedgerSeed

	repo        ports.RepoManager
	svc         application.Service
	adminSvc    application.AdminService
	ledger      *inmemoryledger.Ledger
	relay       ports.ProofRelay
	liveStore   ports.LiveStore
	scheduler   ports.SchedulerService
	registry    *application.AssetRegistry
	vault       *application.CustodyVault
	engine      *application.ExchangeEngine
	controllers map[domain.DomainID]*application.WrappedAssetController
	mirrors     map[domain.DomainID]*application.ExchangeEngine
}

func (c *Config) String() string {
	clone := *c
	if clone.OperatorToken != "" {
		clone.OperatorToken = "••••••"
	}
	if clone.BridgeToken != "" {
		clone.BridgeToken = "••••••"
	}
	if clone.RelayKey != "" {
		clone.RelayKey = "••••••"
	}
	json, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	DefaultPort = 7070

	defaultDatadir             = common.AppDataDir("straitd", false)
	defaultLogLevel            = 4
	defaultDbType              = "badger"
	defaultEventDbType         = "watermill"
	defaultSchedulerType       = "gocron"
	defaultLedgerType          = "inmemory"
	defaultRelayType           = "local"
	defaultLiveStoreType       = "inmemory"
	defaultRedisTxNumOfRetries = 10
	defaultHomeDomain          = "HUB"
	defaultForwardRate         = uint64(domain.RatePrecision)
	defaultTransferTimeout     = int64(300)
	defaultBridgeAccount       = "bridge"
	defaultAllowedOrigins      = cli.NewStringSlice("*")
)

// env returns a list of strings prefixed with `STRAITD_`.
// This is used as a syntax sugar for defining env vars.
func env(values ...string) []string {
	envs := make([]string, len(values))

	for i, value := range values {
		envs[i] = fmt.Sprintf("STRAITD_%s", value)
	}

	return envs
}

var (
	Datadir = &cli.StringFlag{
		Usage: "Directory to store data",
		Name:  "datadir", EnvVars: env("DATADIR"),
		Value: defaultDatadir,
	}

	Port = &cli.UintFlag{
		Usage: "Port to listen on",
		Name:  "port", EnvVars: env("PORT"),
		Value: uint(DefaultPort),
	}

	LogLevel = &cli.IntFlag{
		Usage: "Logging level (0-6, where 6 is trace)",
		Name:  "log-level", EnvVars: env("LOG_LEVEL"),
		Value: defaultLogLevel,
	}

	DbType = &cli.StringFlag{
		Usage: "Database type (badger)",
		Name:  "db-type", EnvVars: env("DB_TYPE"),
		Value: defaultDbType,
	}

	EventDbType = &cli.StringFlag{
		Usage: "Event database type (watermill)",
		Name:  "event-db-type", EnvVars: env("EVENT_DB_TYPE"),
		Value: defaultEventDbType,
	}

	SchedulerType = &cli.StringFlag{
		Usage: "Scheduler type (gocron)",
		Name:  "scheduler-type", EnvVars: env("SCHEDULER_TYPE"),
		Value: defaultSchedulerType,
	}

	LedgerType = &cli.StringFlag{
		Usage: "Home domain balance ledger type (inmemory)",
		Name:  "ledger-type", EnvVars: env("LEDGER_TYPE"),
		Value: defaultLedgerType,
	}

	RelayType = &cli.StringFlag{
		Usage: "Proof relay type (local)",
		Name:  "relay-type", EnvVars: env("RELAY_TYPE"),
		Value: defaultRelayType,
	}

	RelayKey = &cli.StringFlag{
		Usage: "Hex key the local relay signs proof tokens with, random if unset",
		Name:  "relay-key", EnvVars: env("RELAY_KEY"),
	}

	LiveStoreType = &cli.StringFlag{
		Usage: "Cache service type (redis, inmemory)",
		Name:  "live-store-type", EnvVars: env("LIVE_STORE_TYPE"),
		Value: defaultLiveStoreType,
	}

	RedisUrl = &cli.StringFlag{
		Usage: "Redis db connection url if STRAITD_LIVE_STORE_TYPE is set to redis",
		Name:  "redis-url", EnvVars: env("REDIS_URL"),
	}

	RedisTxNumOfRetries = &cli.IntFlag{
		Usage: "Maximum number of retries for Redis write operations in case of conflicts",
		Name:  "redis-num-of-retries", EnvVars: env("REDIS_NUM_OF_RETRIES"),
		Value: defaultRedisTxNumOfRetries,
	}

	HomeDomain = &cli.StringFlag{
		Usage: "Identifier of the home domain holding custody",
		Name:  "home-domain", EnvVars: env("HOME_DOMAIN"),
		Value: defaultHomeDomain,
	}

	RemoteDomains = &cli.StringSliceFlag{
		Usage: "Identifiers of the bridged remote domains (comma-separated)",
		Name:  "remote-domains", EnvVars: env("REMOTE_DOMAINS"),
	}

	BaseAsset = &cli.StringFlag{
		Usage: "Base asset of the exchange pair",
		Name:  "base-asset", EnvVars: env("BASE_ASSET"),
	}

	CounterAsset = &cli.StringFlag{
		Usage: "Counter asset of the exchange pair",
		Name:  "counter-asset", EnvVars: env("COUNTER_ASSET"),
	}

	ForwardRate = &cli.Uint64Flag{
		Usage: fmt.Sprintf(
			"Base to counter bootstrap rate as a numerator over %d, ignored once a pair exists",
			domain.RatePrecision,
		),
		Name: "forward-rate", EnvVars: env("FORWARD_RATE"),
		Value: defaultForwardRate,
	}

	TransferTimeout = &cli.Int64Flag{
		Usage: "How long a transfer may stay in flight (in seconds) before it is reverted",
		Name:  "transfer-timeout", EnvVars: env("TRANSFER_TIMEOUT"),
		Value: defaultTransferTimeout,
	}

	OperatorToken = &cli.StringFlag{
		Usage: "Bearer token granting operator authority on admin endpoints",
		Name:  "operator-token", EnvVars: env("OPERATOR_TOKEN"),
	}

	BridgeToken = &cli.StringFlag{
		Usage: "Bearer token the orchestrator uses as bridge authority, random if unset",
		Name:  "bridge-token", EnvVars: env("BRIDGE_TOKEN"),
	}

	BridgeAccount = &cli.StringFlag{
		Usage: "Home domain ledger account custody operations settle against",
		Name:  "bridge-account", EnvVars: env("BRIDGE_ACCOUNT"),
		Value: defaultBridgeAccount,
	}

	AllowedOrigins = &cli.StringSliceFlag{
		Usage: "CORS allowed origins (comma-separated)",
		Name:  "allowed-origins", EnvVars: env("ALLOWED_ORIGINS"),
		Value: defaultAllowedOrigins,
	}

	LedgerSeeds = &cli.StringSliceFlag{
		Usage: "Opening ledger balances as holder:asset:amount entries (comma-separated)",
		Name:  "ledger-seeds", EnvVars: env("LEDGER_SEEDS"),
	}
)

var Flags = []cli.Flag{
	Datadir,
	Port,
	LogLevel,
	DbType,
	EventDbType,
	SchedulerType,
	LedgerType,
	RelayType,
	RelayKey,
	LiveStoreType,
	RedisUrl,
	RedisTxNumOfRetries,
	HomeDomain,
	RemoteDomains,
	BaseAsset,
	CounterAsset,
	ForwardRate,
	TransferTimeout,
	OperatorToken,
	BridgeToken,
	BridgeAccount,
	AllowedOrigins,
	LedgerSeeds,
}

func LoadConfig(c *cli.Context) (*Config, error) {
	if err := initDatadir(c); err != nil {
		return nil, fmt.Errorf("failed to create datadir: %s", err)
	}

	dbPath := filepath.Join(c.String(Datadir.Name), "db")

	var redisUrl string
	if c.String(LiveStoreType.Name) == "redis" {
		redisUrl = c.String(RedisUrl.Name)
		if redisUrl == "" {
			return nil, fmt.Errorf("live store type set to 'redis' but redis url is missing")
		}
	}

	relayKey := c.String(RelayKey.Name)
	if relayKey == "" {
		key, err := randomKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate relay key: %s", err)
		}
		relayKey = key
	}

	bridgeToken := c.String(BridgeToken.Name)
	if bridgeToken == "" {
		token, err := randomKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate bridge token: %s", err)
		}
		bridgeToken = token
	}

	ledgerSeeds, err := parseLedgerSeeds(c.StringSlice(LedgerSeeds.Name))
	if err != nil {
		return nil, err
	}

	return &Config{
		Datadir:             c.String(Datadir.Name),
		Port:                uint32(c.Uint(Port.Name)),
		LogLevel:            c.Int(LogLevel.Name),
		DbType:              c.String(DbType.Name),
		EventDbType:         c.String(EventDbType.Name),
		DbDir:               dbPath,
		SchedulerType:       c.String(SchedulerType.Name),
		LedgerType:          c.String(LedgerType.Name),
		RelayType:           c.String(RelayType.Name),
		RelayKey:            relayKey,
		LiveStoreType:       c.String(LiveStoreType.Name),
		RedisUrl:            redisUrl,
		RedisTxNumOfRetries: c.Int(RedisTxNumOfRetries.Name),
		HomeDomain:          c.String(HomeDomain.Name),
		RemoteDomains:       c.StringSlice(RemoteDomains.Name),
		BaseAsset:           c.String(BaseAsset.Name),
		CounterAsset:        c.String(CounterAsset.Name),
		ForwardRate:         c.Uint64(ForwardRate.Name),
		TransferTimeout:     c.Int64(TransferTimeout.Name),
		OperatorToken:       c.String(OperatorToken.Name),
		BridgeToken:         bridgeToken,
		BridgeAccount:       c.String(BridgeAccount.Name),
		AllowedOrigins:      c.StringSlice(AllowedOrigins.Name),
		LedgerSeeds:         ledgerSeeds,
	}, nil
}

func initDatadir(c *cli.Context) error {
	datadir := c.String(Datadir.Name)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0o755)
	}
	return nil
}

func randomKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

func parseLedgerSeeds(entries []string) ([]LedgerSeed, error) {
	seeds := make([]LedgerSeed, 0, len(entries))
	for _, entry := range entries {
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf(
				"invalid ledger seed %q, must be holder:asset:amount", entry,
			)
		}
		amount, err := strconv.ParseUint(parts[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ledger seed amount %q: %s", parts[2], err)
		}
		seeds = append(seeds, LedgerSeed{
			Holder: parts[0],
			Asset:  parts[1],
			Amount: amount,
		})
	}
	return seeds, nil
}

func (c *Config) Validate() error {
	if !supportedEventDbs.supports(c.EventDbType) {
		return fmt.Errorf(
			"event db type not supported, please select one of: %s",
			supportedEventDbs,
		)
	}
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedSchedulers.supports(c.SchedulerType) {
		return fmt.Errorf(
			"scheduler type not supported, please select one of: %s",
			supportedSchedulers,
		)
	}
	if !supportedLedgers.supports(c.LedgerType) {
		return fmt.Errorf(
			"ledger type not supported, please select one of: %s",
			supportedLedgers,
		)
	}
	if !supportedRelays.supports(c.RelayType) {
		return fmt.Errorf(
			"relay type not supported, please select one of: %s",
			supportedRelays,
		)
	}
	if len(c.LiveStoreType) > 0 && !supportedLiveStores.supports(c.LiveStoreType) {
		return fmt.Errorf(
			"live store type not supported, please select one of: %s",
			supportedLiveStores,
		)
	}
	if err := common.ValidateDomainID(c.HomeDomain); err != nil {
		return fmt.Errorf("invalid home domain: %s", err)
	}
	if len(c.RemoteDomains) == 0 {
		return fmt.Errorf("missing remote domains")
	}
	for _, remoteDomain := range c.RemoteDomains {
		if err := common.ValidateDomainID(remoteDomain); err != nil {
			return fmt.Errorf("invalid remote domain: %s", err)
		}
		if remoteDomain == c.HomeDomain {
			return fmt.Errorf("remote domain %s clashes with home domain", remoteDomain)
		}
	}
	if err := common.ValidateAssetID(c.BaseAsset); err != nil {
		return fmt.Errorf("invalid base asset: %s", err)
	}
	if err := common.ValidateAssetID(c.CounterAsset); err != nil {
		return fmt.Errorf("invalid counter asset: %s", err)
	}
	if c.BaseAsset == c.CounterAsset {
		return fmt.Errorf("base and counter asset must be different")
	}
	if c.ForwardRate == 0 {
		return fmt.Errorf("invalid forward rate, must be positive")
	}
	if c.TransferTimeout < minTransferTimeout {
		return fmt.Errorf(
			"invalid transfer timeout, must be at least %d seconds", minTransferTimeout,
		)
	}
	if len(c.OperatorToken) == 0 {
		return fmt.Errorf("missing operator token")
	}
	if len(c.BridgeAccount) == 0 {
		return fmt.Errorf("missing bridge account")
	}

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.ledgerService(); err != nil {
		return err
	}
	if err := c.relayService(); err != nil {
		return err
	}
	if err := c.liveStoreService(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	if err := c.coreServices(); err != nil {
		return err
	}
	if err := c.adminService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) AdminService() application.AdminService {
	return c.adminSvc
}

func (c *Config) repoManager() error {
	var eventStoreConfig []interface{}
	var dataStoreConfig []interface{}
	logger := log.New()

	switch c.EventDbType {
	case "watermill":
		pubSub := gochannel.NewGoChannel(
			gochannel.Config{}, watermill.NewStdLogger(false, false),
		)
		eventStoreConfig = []interface{}{pubSub}
	default:
		return fmt.Errorf("unknown event db type")
	}

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		EventStoreType:   c.EventDbType,
		DataStoreType:    c.DbType,
		EventStoreConfig: eventStoreConfig,
		DataStoreConfig:  dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) ledgerService() error {
	switch c.LedgerType {
	case "inmemory":
		ledger := inmemoryledger.NewLedger()
		for _, seed := range c.LedgerSeeds {
			ledger.Seed(seed.Holder, domain.AssetID(seed.Asset), seed.Amount)
		}
		c.ledger = ledger
	default:
		return fmt.Errorf("unknown ledger type")
	}
	return nil
}

func (c *Config) relayService() error {
	var svc ports.ProofRelay
	var err error
	switch c.RelayType {
	case "local":
		key, decodeErr := hex.DecodeString(c.RelayKey)
		if decodeErr != nil {
			return fmt.Errorf("invalid relay key: %s", decodeErr)
		}
		svc, err = localrelay.NewProofRelay(key)
	default:
		err = fmt.Errorf("unknown relay type")
	}
	if err != nil {
		return err
	}

	c.relay = svc
	return nil
}

func (c *Config) liveStoreService() error {
	var svc ports.LiveStore
	switch c.LiveStoreType {
	case "inmemory":
		svc = inmemorylivestore.NewLiveStore()
	case "redis":
		redisOpts, err := redis.ParseURL(c.RedisUrl)
		if err != nil {
			return fmt.Errorf("invalid redis url: %s", err)
		}
		rdb := redis.NewClient(redisOpts)
		svc = redislivestore.NewLiveStore(rdb, c.RedisTxNumOfRetries)
	default:
		return fmt.Errorf("unknown live store type")
	}

	c.liveStore = svc
	return nil
}

func (c *Config) schedulerService() error {
	switch c.SchedulerType {
	case "gocron":
		c.scheduler = timescheduler.NewScheduler()
	default:
		return fmt.Errorf("unknown scheduler type")
	}
	return nil
}

func (c *Config) coreServices() error {
	homeDomain := domain.DomainID(c.HomeDomain)
	remoteDomains := make([]domain.DomainID, 0, len(c.RemoteDomains))
	for _, remoteDomain := range c.RemoteDomains {
		remoteDomains = append(remoteDomains, domain.DomainID(remoteDomain))
	}
	operator := domain.Authority(c.OperatorToken)
	bridge := domain.Authority(c.BridgeToken)

	c.registry = application.NewAssetRegistry(homeDomain, remoteDomains, c.repo, operator)
	c.vault = application.NewCustodyVault(
		homeDomain, c.repo, c.ledger.View(vaultAccount), c.relay, operator, bridge,
	)
	c.engine = application.NewExchangeEngine(
		homeDomain, c.repo, c.ledger.View(engineAccount), operator, bridge,
	)

	c.controllers = make(
		map[domain.DomainID]*application.WrappedAssetController, len(remoteDomains),
	)
	c.mirrors = make(map[domain.DomainID]*application.ExchangeEngine, len(remoteDomains))
	for _, remoteDomain := range remoteDomains {
		c.controllers[remoteDomain] = application.NewWrappedAssetController(
			remoteDomain, c.repo, c.relay, bridge,
		)
		// mirrors only quote, they hold no reserves
		c.mirrors[remoteDomain] = application.NewExchangeEngine(
			remoteDomain, c.repo, nil, operator, bridge,
		)
	}
	return nil
}

func (c *Config) appService() error {
	ctx := context.Background()
	base := domain.AssetID(c.BaseAsset)
	counter := domain.AssetID(c.CounterAsset)

	if err := c.engine.Bootstrap(ctx, base, counter, c.ForwardRate); err != nil {
		return err
	}
	for _, mirror := range c.mirrors {
		if err := mirror.Bootstrap(ctx, base, counter, c.ForwardRate); err != nil {
			return err
		}
	}

	svc, err := application.NewService(
		c.registry, c.vault, c.engine, c.controllers, c.mirrors,
		c.repo, c.relay, c.liveStore, c.scheduler,
		domain.Authority(c.BridgeToken), c.BridgeAccount,
		time.Duration(c.TransferTimeout)*time.Second,
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

func (c *Config) adminService() error {
	c.adminSvc = application.NewAdminService(
		c.registry, c.vault, c.engine, c.controllers, c.repo,
		domain.Authority(c.OperatorToken),
	)
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
