package sqlinline

const QSelectUserByID = `--sql 193f1393-775c-481e-9e5c-5680a4541df9
select id, chat_ref, coalesce(locale, ''), credits,
       coalesce(subscription_until, 'epoch'::timestamptz),
       funnel_stage, banned, bot_blocked, created_at, updated_at
from users
where id = $1::uuid
limit 1;
`

const QListFunnelCohort = `--sql eeb8468f-b323-4d17-99e0-1826d028925f
select id, chat_ref, coalesce(locale, ''), credits,
       coalesce(subscription_until, 'epoch'::timestamptz),
       funnel_stage, banned, bot_blocked, created_at, updated_at
from users
where ($1::text = 'all' or funnel_stage = $1::text)
  and not banned
  and not bot_blocked
  and chat_ref <> 0
order by created_at asc;
`

const QSetSubscription = `--sql 990d6f62-0b6c-4ae7-9170-f9a8635d7182
update users
set subscription_until = $2::timestamptz, updated_at = now()
where id = $1::uuid;
`
