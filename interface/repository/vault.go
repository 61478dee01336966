package repository

import (
	"context"
	"fmt"
	"math/big"
	"vault/domain"

	"github.com/behrang/sqlbatch"
)

const (
	vaultColumns = `
		name, token,
		total_allocated_amount::text, total_claim_counts, start_time, claim_period_times, initialized,
		tge_amount::text, tge_time, tge_configured,
		first_claim_amount::text, first_claim_time, first_claim_configured,
		current_round, tge_claimed, first_claim_claimed, claimed_amount::text,
		version, create_time, update_time`

	sqlVaultInsertIfNotExists = `
	insert into vaults (
			name, token, version, create_time, update_time
		)
		values (
			$1, $2, 0, $3, $3
		)
	on conflict (name) do nothing
	returning ` + vaultColumns

	sqlVaultFind = `
	select ` + vaultColumns + `
	from vaults
	where name = $1
`

	sqlVaultFindAll = `
	select ` + vaultColumns + `
	from vaults
	order by name
`

	sqlVaultUpdate = `
	update vaults
		set total_allocated_amount = $3::numeric,
			total_claim_counts = $4,
			start_time = $5,
			claim_period_times = $6,
			initialized = $7,
			tge_amount = $8::numeric,
			tge_time = $9,
			tge_configured = $10,
			first_claim_amount = $11::numeric,
			first_claim_time = $12,
			first_claim_configured = $13,
			current_round = $14,
			tge_claimed = $15,
			first_claim_claimed = $16,
			claimed_amount = $17::numeric,
			update_time = $18,
			version = version + 1
	where name = $1 and version = $2
`
)

type VaultRepository struct {
	batchHandler BatchHandler
}

func NewVaultRepository(db BatchHandler) *VaultRepository {
	return &VaultRepository{batchHandler: db}
}

func scanVault(scan func(...interface{}) error) (*domain.Vault, error) {
	r := domain.Vault{}
	var total, tge, firstClaim, claimed string
	var counts, round int64
	err := scan(
		&r.Name, &r.Token,
		&total, &counts, &r.Config.StartTime, &r.Config.ClaimPeriodTimes, &r.Config.Initialized,
		&tge, &r.Config.TgeTime, &r.Config.TgeConfigured,
		&firstClaim, &r.Config.FirstClaimTime, &r.Config.FirstClaimConfigured,
		&round, &r.State.TgeClaimed, &r.State.FirstClaimClaimed, &claimed,
		&r.Version, &r.CreateTime, &r.UpdateTime,
	)
	if err != nil {
		return nil, err
	}

	r.Config.TotalClaimCounts = uint32(counts)
	r.State.CurrentRound = uint32(round)
	if r.Config.TotalAllocatedAmount, err = parseAmount(total); err != nil {
		return nil, err
	}
	if r.Config.TgeAmount, err = parseAmount(tge); err != nil {
		return nil, err
	}
	if r.Config.FirstClaimAmount, err = parseAmount(firstClaim); err != nil {
		return nil, err
	}
	if r.State.ClaimedAmount, err = parseAmount(claimed); err != nil {
		return nil, err
	}
	return &r, nil
}

func readAllVaults(memo interface{}, scan func(...interface{}) error) (interface{}, error) {
	r, err := scanVault(scan)
	list := memo.([]*domain.Vault)
	if err == nil {
		list = append(list, r)
	}
	return list, err
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// InsertIfNotExists stores a fresh vault. It fails with ErrorVaultExists if the name is
// already taken.
func (repo *VaultRepository) InsertIfNotExists(ctx context.Context, vault *domain.Vault) (*domain.Vault, error) {
	results, err := repo.batchHandler.Batch(ctx, &BatchOptionNormal, []sqlbatch.Command{
		{
			Query:   sqlVaultInsertIfNotExists,
			Args:    []interface{}{vault.Name, vault.Token, vault.CreateTime},
			Init:    make([]*domain.Vault, 0, 1),
			ReadAll: readAllVaults,
		},
	})
	if err != nil {
		return nil, err
	}

	result := first[domain.Vault](results[0])
	if result == nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrorVaultExists, vault.Name)
	}
	return result, nil
}

// Find loads a vault by name, or fails with ErrorVaultNotFound.
func (repo *VaultRepository) Find(ctx context.Context, name string) (*domain.Vault, error) {
	results, err := repo.batchHandler.Batch(ctx, &BatchOptionNormalReadOnly, []sqlbatch.Command{
		{
			Query:   sqlVaultFind,
			Args:    []interface{}{name},
			Init:    make([]*domain.Vault, 0, 1),
			ReadAll: readAllVaults,
		},
	})
	if err != nil {
		return nil, err
	}

	result := first[domain.Vault](results[0])
	if result == nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrorVaultNotFound, name)
	}
	return result, nil
}

func (repo *VaultRepository) FindAll(ctx context.Context) ([]*domain.Vault, error) {
	results, err := repo.batchHandler.Batch(ctx, &BatchOptionNormalReadOnly, []sqlbatch.Command{
		{
			Query:   sqlVaultFindAll,
			Args:    []interface{}{},
			Init:    make([]*domain.Vault, 0),
			ReadAll: readAllVaults,
		},
	})
	if err != nil {
		return nil, err
	}
	result, _ := results[0].([]*domain.Vault)
	return result, nil
}

// Save commits a vault transition and the claim record it produced, if any, in one
// serializable transaction. vault.Version must be the version the transition was
// computed from; it is incremented on success.
func (repo *VaultRepository) Save(ctx context.Context, vault *domain.Vault, claim *domain.ClaimRecord) error {
	c, s := vault.Config, vault.State
	commands := []sqlbatch.Command{
		{
			Query: sqlVaultUpdate,
			Args: []interface{}{
				vault.Name, vault.Version,
				c.TotalAllocatedAmount.String(), int64(c.TotalClaimCounts), c.StartTime, c.ClaimPeriodTimes, c.Initialized,
				c.TgeAmount.String(), c.TgeTime, c.TgeConfigured,
				c.FirstClaimAmount.String(), c.FirstClaimTime, c.FirstClaimConfigured,
				int64(s.CurrentRound), s.TgeClaimed, s.FirstClaimClaimed, s.ClaimedAmount.String(),
				vault.UpdateTime,
			},
			Affect: 1,
		},
	}
	if claim != nil {
		commands = append(commands, insertClaimCommand(claim))
	}

	_, err := repo.batchHandler.Batch(ctx, &BatchOptionSerializable, commands)
	if err != nil {
		stored, findErr := repo.Find(ctx, vault.Name)
		if findErr == nil && stored.Version != vault.Version {
			return fmt.Errorf("%w: %v", domain.ErrorConcurrentUpdate, vault.Name)
		}
		return err
	}

	vault.Version++
	return nil
}
