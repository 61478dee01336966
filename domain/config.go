package domain

import (
	"crypto/ed25519"
	"fmt"
	"math/big"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/wallet"
)

const (
	MainNetwork = "mainnet"
	TestNetwork = "testnet"
)

var (
	ErrorInvalidNetwork = fmt.Errorf("network must be equal to 'mainnet' or 'testnet' only")

	ErrorNoMnemonic          = fmt.Errorf("no mnemonic is defined")
	ErrorMnemonicConflict    = fmt.Errorf("only one of mnemonic or mnemonic_url must be defined")
	ErrorReadingMnemonicFile = fmt.Errorf("error in reading mnemonic file")

	ErrorNoAdmin             = fmt.Errorf("at least one admin address must be defined")
	ErrorInvalidAdminAddress = fmt.Errorf("invalid admin address")

	ErrorInvalidClaimInterval  = fmt.Errorf("invalid time interval for claim process")
	ErrorInvalidRetryInterval  = fmt.Errorf("invalid time interval for retry process")
	ErrorInvalidVerifyWindow   = fmt.Errorf("verify window must be longer than a wallet message lifetime")
	ErrorInvalidForwardAmount  = fmt.Errorf("invalid jetton forward amount")
	ErrorInvalidAutoClaim      = fmt.Errorf("invalid auto claim entry")
	ErrorInvalidTokenDecimals  = fmt.Errorf("token decimals must be between 0 and 30")
	ErrorInvalidMaxRetry       = fmt.Errorf("max retry must not be negative")
	ErrorInvalidMetricsAddress = fmt.Errorf("invalid metrics address")
)

// Wallet messages are valid for a few minutes after they are signed.
const minVerifyWindow = 5 * time.Minute

var (
	TrailingSlashRE = regexp.MustCompile("/+$")
)

// AutoClaim is a vault the scheduler claims for on every tick.
type AutoClaim struct {
	Vault       string `mapstructure:"vault"`
	Destination string `mapstructure:"destination"`
}

var (
	dbUri   string
	network string

	mnemonic               string
	mnemonic_url           string
	driverWalletPrivateKey ed25519.PrivateKey

	adminAddresses  []string
	adminAccountIds []tongo.AccountID

	forwardAmount uint64
	tokenDecimals int

	claimInterval time.Duration
	retryInterval time.Duration
	verifyWindow  time.Duration
	maxRetry      int

	metricsAddress string
	autoClaims     []AutoClaim
)

func setDefaults() {
	viper.SetDefault("network", MainNetwork)
	viper.SetDefault("jetton_forward_amount", "50000000")
	viper.SetDefault("token_decimals", 18)
	viper.SetDefault("claim_interval", "1m")
	viper.SetDefault("retry_interval", "5m")
	viper.SetDefault("verify_window", "10m")
	viper.SetDefault("max_retry", 5)
	viper.SetDefault("metrics_address", ":9102")
}

// ReadConfig loads the configuration file and the environment and keeps the processed
// values for later accesses.
func ReadConfig(filePath string) error {
	setDefaults()
	viper.SetConfigFile(filePath)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Failed reading config file: %v\n", err.Error())
	}

	if err := initializeVariables(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	return nil
}

// This method processes the configuration parameters and keeps the processed values
// in some variables for later accesses rapidly.
func initializeVariables() error {
	var err error

	// Database stuff
	dbUri = TrailingSlashRE.ReplaceAllString(viper.GetString("service_db_uri"), "")

	// Network stuff
	network = strings.TrimSpace(strings.ToLower(viper.GetString("network")))
	if network != MainNetwork && network != TestNetwork {
		return ErrorInvalidNetwork
	}

	// Operator wallet stuff
	mnemonic = strings.TrimSpace(viper.GetString("mnemonic"))
	mnemonic_url = strings.TrimSpace(viper.GetString("mnemonic_url"))
	if mnemonic == "" && mnemonic_url == "" {
		return ErrorNoMnemonic
	}
	if mnemonic != "" && mnemonic_url != "" {
		return ErrorMnemonicConflict
	}

	seed := mnemonic
	if mnemonic_url != "" {
		seed, err = readMnemonicFile(mnemonic_url)
		if err != nil {
			return ErrorReadingMnemonicFile
		}
	}

	driverWalletPrivateKey, err = wallet.SeedToPrivateKey(seed)
	if err != nil {
		return fmt.Errorf("failed to get private key: %w", err)
	}

	// Administrators
	adminAddresses = adminAddresses[:0]
	adminAccountIds = adminAccountIds[:0]
	for _, addr := range viper.GetStringSlice("admin_addresses") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		accid, err := tongo.ParseAccountID(addr)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrorInvalidAdminAddress, addr)
		}
		adminAddresses = append(adminAddresses, addr)
		adminAccountIds = append(adminAccountIds, accid)
	}
	if len(adminAccountIds) == 0 {
		return ErrorNoAdmin
	}

	//---------------------------------------------------------------
	// jetton transfer
	amount, ok := new(big.Int).SetString(strings.TrimSpace(viper.GetString("jetton_forward_amount")), 10)
	if !ok || amount.Sign() < 0 || !amount.IsUint64() {
		return ErrorInvalidForwardAmount
	}
	forwardAmount = amount.Uint64()

	tokenDecimals = viper.GetInt("token_decimals")
	if tokenDecimals < 0 || tokenDecimals > 30 {
		return ErrorInvalidTokenDecimals
	}

	//---------------------------------------------------------------
	// claim interval
	claimInterval, err = time.ParseDuration(viper.GetString("claim_interval"))
	if err != nil || claimInterval <= 0 {
		return ErrorInvalidClaimInterval
	}

	//---------------------------------------------------------------
	// retry interval
	retryInterval, err = time.ParseDuration(viper.GetString("retry_interval"))
	if err != nil || retryInterval <= 0 {
		return ErrorInvalidRetryInterval
	}

	// A wallet message may land up to its lifetime after it was sent.
	verifyWindow, err = time.ParseDuration(viper.GetString("verify_window"))
	if err != nil || verifyWindow < minVerifyWindow {
		return ErrorInvalidVerifyWindow
	}

	maxRetry = viper.GetInt("max_retry")
	if maxRetry < 0 {
		return ErrorInvalidMaxRetry
	}

	metricsAddress = strings.TrimSpace(viper.GetString("metrics_address"))
	if metricsAddress == "" {
		return ErrorInvalidMetricsAddress
	}

	//---------------------------------------------------------------
	// auto claims
	autoClaims = nil
	if err = viper.UnmarshalKey("auto_claims", &autoClaims); err != nil {
		return fmt.Errorf("%w: %v", ErrorInvalidAutoClaim, err)
	}
	for _, ac := range autoClaims {
		if strings.TrimSpace(ac.Vault) == "" {
			return fmt.Errorf("%w: vault name is empty", ErrorInvalidAutoClaim)
		}
		if _, err := tongo.ParseAccountID(ac.Destination); err != nil {
			return fmt.Errorf("%w: destination %q of vault %q", ErrorInvalidAutoClaim, ac.Destination, ac.Vault)
		}
	}

	return nil
}

func readMnemonicFile(filePath string) (string, error) {
	fileContent, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(fileContent)), nil
}

//-------------------------------------------------------------------
// Normal configuration values

func GetDbUri() string {
	return dbUri
}

func GetNetwork() string {
	return network
}

func GetDriverWalletPrivateKey() ed25519.PrivateKey {
	return driverWalletPrivateKey
}

func GetAdminAddresses() []string {
	return adminAddresses
}

func GetAdminAccountIds() []tongo.AccountID {
	return adminAccountIds
}

func GetForwardAmount() uint64 {
	return forwardAmount
}

func GetTokenDecimals() int {
	return tokenDecimals
}

func GetClaimInterval() time.Duration {
	return claimInterval
}

func GetRetryInterval() time.Duration {
	return retryInterval
}

func GetVerifyWindow() time.Duration {
	return verifyWindow
}

func GetMaxRetry() int {
	return maxRetry
}

func GetMetricsAddress() string {
	return metricsAddress
}

func GetAutoClaims() []AutoClaim {
	return autoClaims
}

// -------------------------------------------------------------------
// Evaluating values

func IsTestNet() bool {
	return network == TestNetwork
}
