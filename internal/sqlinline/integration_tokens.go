package sqlinline

const QSelectIntegrationToken = `--sql 7d0e9cc8-bb70-4009-9994-ec2490da0af4
select token
from integration_tokens
where provider = $1::text
limit 1;
`

const QUpsertIntegrationToken = `--sql f7935596-0619-4b42-ad57-0c2d7c077b1e
insert into integration_tokens(provider, token, properties, created_at, updated_at)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update
set token = excluded.token, properties = excluded.properties, updated_at = now();
`
