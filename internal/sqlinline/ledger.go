package sqlinline

// Ledger entries are keyed (user_id, request_id, direction) with a uniqueness
// constraint. The balance moves only when the entry row actually lands, so a
// replayed debit or refund for the same request leaves the balance untouched.

const QLedgerDebit = `--sql b8177453-ba0b-4a26-99db-3b030335702a
with eligible as (
  select id from users
  where id = $1::uuid and credits >= $3::int
),
entry as (
  insert into ledger_entries(id, user_id, request_id, direction, amount, created_at)
  select gen_random_uuid(), $1::uuid, $2::uuid, 'debit', $3::int, now()
  from eligible
  on conflict (user_id, request_id, direction) do nothing
  returning id
)
update users
set credits = credits - $3::int, updated_at = now()
where id = $1::uuid
  and exists (select 1 from entry)
returning credits;
`

const QLedgerRefund = `--sql 7611ab8b-10f4-4117-ac84-b950d67f71c4
with entry as (
  insert into ledger_entries(id, user_id, request_id, direction, amount, created_at)
  select gen_random_uuid(), $1::uuid, $2::uuid, 'refund', $3::int, now()
  where exists (
    select 1 from ledger_entries
    where user_id = $1::uuid and request_id = $2::uuid and direction = 'debit'
  )
  on conflict (user_id, request_id, direction) do nothing
  returning id
)
update users
set credits = credits + $3::int, updated_at = now()
where id = $1::uuid
  and exists (select 1 from entry);
`

const QLedgerEntryExists = `--sql 60af1c04-f347-4c9c-be7a-cfb5e0d94f8c
select exists (
  select 1 from ledger_entries
  where user_id = $1::uuid and request_id = $2::uuid and direction = $3::text
);
`

const QLedgerGrant = `--sql 50d06ce9-412b-42cd-af57-4fb1cc914658
update users
set credits = credits + $2::int, updated_at = now()
where id = $1::uuid;
`

const QSelectBalance = `--sql fe0e83f7-bd7e-4657-8cea-dc0246f9a847
select credits
from users
where id = $1::uuid
limit 1;
`

const QSelectSubscription = `--sql ab9ddd5a-d37b-4b78-ac34-45e7d199697a
select coalesce(subscription_until, 'epoch'::timestamptz)
from users
where id = $1::uuid
limit 1;
`
