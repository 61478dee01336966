package repository

import (
	"context"
	"time"
	"vault/domain"

	"github.com/behrang/sqlbatch"
)

const (
	claimColumns = `
		id, vault, kind, from_round, to_round, amount::text, destination, query_id,
		state, retried, last_error, create_time, retry_time, sent_time, verified_time`

	sqlClaimInsert = `
	insert into claims (
			id, vault, kind, from_round, to_round, amount, destination, query_id,
			state, retried, last_error, create_time, retry_time, sent_time, verified_time
		)
		values (
			$1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, 0, '', $10, null, null, null
		)
`

	sqlClaimFind = `
	select ` + claimColumns + `
	from claims
	where id = $1
`

	sqlClaimFindByVault = `
	select ` + claimColumns + `
	from claims
	where vault = $1
	order by create_time
`

	sqlClaimFindAllTriable = `
	select ` + claimColumns + `
	from claims
	where retried < $1 and (state = 'error' or (state = 'new' and create_time < $2))
	order by create_time
`

	sqlClaimFindAllVerifiable = `
	select ` + claimColumns + `
	from claims
	where state in ('sent', 'unconfirmed') or (state = 'ongoing' and retry_time < $1)
	order by create_time
`

	sqlClaimSetOngoing = `
	update claims
		set retried = retried + 1, retry_time = $2, state = 'ongoing'
	where id = $1 and state in ('new', 'error')
`

	sqlClaimSetSent = `
	update claims
		set sent_time = $2, state = 'sent', last_error = ''
	where id = $1
`

	sqlClaimSetVerified = `
	update claims
		set verified_time = $3, state = 'verified', last_error = ''
	where id = $1 and state = $2
`

	sqlClaimSetRetriable = `
	update claims
		set state = 'error', last_error = $3
	where id = $1 and state = $2
`

	sqlClaimSetState = `
	update claims
		set state = $2, last_error = $3
	where id = $1
`
)

type ClaimRepository struct {
	batchHandler BatchHandler
}

func NewClaimRepository(db BatchHandler) *ClaimRepository {
	return &ClaimRepository{batchHandler: db}
}

func insertClaimCommand(r *domain.ClaimRecord) sqlbatch.Command {
	return sqlbatch.Command{
		Query: sqlClaimInsert,
		Args: []interface{}{
			r.Id, r.Vault, r.Kind, int64(r.FromRound), int64(r.ToRound), r.Amount.String(),
			r.Destination, int64(r.QueryId), r.State, r.CreateTime,
		},
		Affect: 1,
	}
}

func readAllClaims(memo interface{}, scan func(...interface{}) error) (interface{}, error) {
	r := domain.ClaimRecord{}
	var amount string
	var fromRound, toRound, queryId int64
	err := scan(
		&r.Id, &r.Vault, &r.Kind, &fromRound, &toRound, &amount, &r.Destination, &queryId,
		&r.State, &r.Retried, &r.LastError, &r.CreateTime, &r.RetryTime, &r.SentTime, &r.VerifiedTime,
	)
	list := memo.([]*domain.ClaimRecord)
	if err != nil {
		return list, err
	}

	parsed, err := parseAmount(amount)
	if err != nil {
		return list, err
	}
	r.Amount.Set(parsed)
	r.FromRound = uint32(fromRound)
	r.ToRound = uint32(toRound)
	r.QueryId = uint64(queryId)

	list = append(list, &r)
	return list, nil
}

func (repo *ClaimRepository) Find(ctx context.Context, id string) (*domain.ClaimRecord, error) {
	results, err := repo.batchHandler.Batch(ctx, &BatchOptionNormalReadOnly, []sqlbatch.Command{
		{
			Query:   sqlClaimFind,
			Args:    []interface{}{id},
			Init:    make([]*domain.ClaimRecord, 0, 1),
			ReadAll: readAllClaims,
		},
	})
	if err != nil {
		return nil, err
	}
	return first[domain.ClaimRecord](results[0]), nil
}

func (repo *ClaimRepository) FindByVault(ctx context.Context, vault string) ([]*domain.ClaimRecord, error) {
	results, err := repo.batchHandler.Batch(ctx, &BatchOptionNormalReadOnly, []sqlbatch.Command{
		{
			Query:   sqlClaimFindByVault,
			Args:    []interface{}{vault},
			Init:    make([]*domain.ClaimRecord, 0),
			ReadAll: readAllClaims,
		},
	})
	if err != nil {
		return nil, err
	}
	result, _ := results[0].([]*domain.ClaimRecord)
	return result, nil
}

// FindAllTriable returns failed claims and claims that stayed 'new' since before
// staleBefore.
func (repo *ClaimRepository) FindAllTriable(ctx context.Context, maxRetry int, staleBefore time.Time) ([]*domain.ClaimRecord, error) {
	results, err := repo.batchHandler.Batch(ctx, &BatchOptionNormalReadOnly, []sqlbatch.Command{
		{
			Query:   sqlClaimFindAllTriable,
			Args:    []interface{}{maxRetry, staleBefore},
			Init:    make([]*domain.ClaimRecord, 0),
			ReadAll: readAllClaims,
		},
	})
	if err != nil {
		return nil, err
	}
	result, _ := results[0].([]*domain.ClaimRecord)
	return result, nil
}

// FindAllVerifiable returns the claims whose transfer may have left and is not verified
// yet, including claims left 'ongoing' since before staleBefore.
func (repo *ClaimRepository) FindAllVerifiable(ctx context.Context, staleBefore time.Time) ([]*domain.ClaimRecord, error) {
	results, err := repo.batchHandler.Batch(ctx, &BatchOptionNormalReadOnly, []sqlbatch.Command{
		{
			Query:   sqlClaimFindAllVerifiable,
			Args:    []interface{}{staleBefore},
			Init:    make([]*domain.ClaimRecord, 0),
			ReadAll: readAllClaims,
		},
	})
	if err != nil {
		return nil, err
	}
	result, _ := results[0].([]*domain.ClaimRecord)
	return result, nil
}

// SetOngoing marks the claim as being dispatched. It fails when another dispatcher took
// it first.
func (repo *ClaimRepository) SetOngoing(ctx context.Context, id string, timestamp time.Time) error {
	_, err := repo.batchHandler.Batch(ctx, &BatchOptionSerializable, []sqlbatch.Command{
		{
			Query:  sqlClaimSetOngoing,
			Args:   []interface{}{id, timestamp},
			Affect: 1,
		},
	})
	return err
}

func (repo *ClaimRepository) SetSent(ctx context.Context, id string, timestamp time.Time) error {
	_, err := repo.batchHandler.Batch(ctx, &BatchOptionNormal, []sqlbatch.Command{
		{
			Query:  sqlClaimSetSent,
			Args:   []interface{}{id, timestamp},
			Affect: 1,
		},
	})
	return err
}

// SetVerified settles a claim that is still in state from.
func (repo *ClaimRepository) SetVerified(ctx context.Context, id string, from string, timestamp time.Time) error {
	_, err := repo.batchHandler.Batch(ctx, &BatchOptionSerializable, []sqlbatch.Command{
		{
			Query:  sqlClaimSetVerified,
			Args:   []interface{}{id, from, timestamp},
			Affect: 1,
		},
	})
	return err
}

// SetRetriable moves a claim that is still in state from back to 'error'.
func (repo *ClaimRepository) SetRetriable(ctx context.Context, id string, from string, lastError string) error {
	_, err := repo.batchHandler.Batch(ctx, &BatchOptionSerializable, []sqlbatch.Command{
		{
			Query:  sqlClaimSetRetriable,
			Args:   []interface{}{id, from, lastError},
			Affect: 1,
		},
	})
	return err
}

func (repo *ClaimRepository) SetState(ctx context.Context, id string, state string, lastError string) error {
	_, err := repo.batchHandler.Batch(ctx, &BatchOptionNormal, []sqlbatch.Command{
		{
			Query:  sqlClaimSetState,
			Args:   []interface{}{id, state, lastError},
			Affect: 1,
		},
	})
	return err
}
