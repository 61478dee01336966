package cmd

import (
	"database/sql"
	"fmt"
	"time"
	"vault/domain"
	"vault/infrastructure/dbhandler"
	"vault/interface/repository"
	"vault/usecase"

	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
	"github.com/tonkeeper/tongo/liteapi"
	"github.com/tonkeeper/tongo/wallet"
	"go.uber.org/zap"
)

// staleClaimAge is how long a committed claim may stay 'new' before the retry loop takes
// it, or 'ongoing' before verification does.
const staleClaimAge = 2 * time.Minute

var dbPool *sql.DB
var dbHandler dbhandler.DBHandler
var tongoClient *liteapi.Client
var driverWallet wallet.Wallet
var vaultInteractor *usecase.VaultInteractor
var payoutInteractor *usecase.PayoutInteractor
var verifyInteractor *usecase.VerifyInteractor
var ledger usecase.Ledger

func databaseInject() {
	var err error
	dbPool, err = sql.Open("postgres", domain.GetDbUri())
	if err != nil {
		logger.Fatal("⛔️ unable to open database", zap.Error(err))
	}
	dbPool.SetMaxOpenConns(20)
	dbPool.SetMaxIdleConns(5)
	dbPool.SetConnMaxIdleTime(1 * time.Minute)
	dbPool.SetConnMaxLifetime(4 * time.Hour)

	dbHandler = dbhandler.DBHandler{DB: dbPool, Logger: logger.Named("db")}
}

func defaultDependencyInject() {
	databaseInject()

	var err error
	switch domain.GetNetwork() {
	case domain.MainNetwork:
		tongoClient, err = liteapi.NewClientWithDefaultMainnet()
	case domain.TestNetwork:
		tongoClient, err = liteapi.NewClientWithDefaultTestnet()
	default:
		err = domain.ErrorInvalidNetwork
	}
	if err != nil {
		logger.Fatal("⛔️ unable to create tongo client", zap.Error(err))
	}

	driverWallet, err = wallet.New(domain.GetDriverWalletPrivateKey(), wallet.V4R2, 0, nil, tongoClient)
	if err != nil {
		logger.Fatal("⛔️ unable to connect to driver wallet", zap.Error(err))
	}

	vaultRepository := repository.NewVaultRepository(dbHandler)
	claimRepository := repository.NewClaimRepository(dbHandler)

	clock := clockwork.NewRealClock()
	messengerInteractor := usecase.NewMessengerInteractor(tongoClient, &driverWallet, logger.Named("messenger"))
	contractInteractor := usecase.NewContractInteractor(tongoClient)
	ledger = usecase.NewJettonLedger(messengerInteractor, contractInteractor, domain.GetForwardAmount())

	payoutInteractor = usecase.NewPayoutInteractor(
		claimRepository,
		vaultRepository,
		ledger,
		clock,
		logger.Named("payout"),
		domain.GetMaxRetry(),
		staleClaimAge,
		domain.GetTokenDecimals(),
	)
	verifyInteractor = usecase.NewVerifyInteractor(
		claimRepository,
		vaultRepository,
		ledger,
		clock,
		logger.Named("verify"),
		staleClaimAge,
		domain.GetVerifyWindow(),
	)
	vaultInteractor = usecase.NewVaultInteractor(
		vaultRepository,
		claimRepository,
		usecase.NewAdminGate(domain.GetAdminAccountIds()),
		payoutInteractor,
		clock,
		logger.Named("engine"),
	)
}

// caller is the identity the CLI acts with: the operator wallet. It has to be listed in
// admin_addresses for mutating commands to pass the gate.
func caller() string {
	return driverWallet.GetAddress().ToRaw()
}

func closeDependencies() {
	if dbPool != nil {
		if err := dbPool.Close(); err != nil {
			fmt.Printf("⚠️ Failed closing database pool: %v\n", err)
		}
	}
}
