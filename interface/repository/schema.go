package repository

// Schema holds the statements the migrate command applies. They are idempotent.
var Schema = []string{
	`
	create table if not exists vaults (
		name                   text primary key,
		token                  text not null,
		total_allocated_amount numeric(78, 0) not null default 0,
		total_claim_counts     bigint not null default 0,
		start_time             bigint not null default 0,
		claim_period_times     bigint not null default 0,
		initialized            boolean not null default false,
		tge_amount             numeric(78, 0) not null default 0,
		tge_time               bigint not null default 0,
		tge_configured         boolean not null default false,
		first_claim_amount     numeric(78, 0) not null default 0,
		first_claim_time       bigint not null default 0,
		first_claim_configured boolean not null default false,
		current_round          bigint not null default 0,
		tge_claimed            boolean not null default false,
		first_claim_claimed    boolean not null default false,
		claimed_amount         numeric(78, 0) not null default 0,
		version                bigint not null default 0,
		create_time            timestamptz not null,
		update_time            timestamptz not null
	)
`,
	`
	create table if not exists claims (
		id            uuid primary key,
		vault         text not null references vaults (name),
		kind          text not null,
		from_round    bigint not null,
		to_round      bigint not null,
		amount        numeric(78, 0) not null,
		destination   text not null,
		query_id      bigint not null,
		state         text not null,
		retried       integer not null default 0,
		last_error    text not null default '',
		create_time   timestamptz not null,
		retry_time    timestamptz,
		sent_time     timestamptz,
		verified_time timestamptz
	)
`,
	`alter table claims add column if not exists verified_time timestamptz`,
	`create index if not exists claims_vault_idx on claims (vault, create_time)`,
	`create index if not exists claims_state_idx on claims (state)`,
	`create unique index if not exists claims_query_id_idx on claims (query_id)`,
}
