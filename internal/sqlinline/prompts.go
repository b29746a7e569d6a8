package sqlinline

const QSelectPromptByKey = `--sql 56cd84cf-2699-4daf-bb3e-8b4836ac8749
select body
from prompts
where key = $1::text
limit 1;
`

const QUpsertPrompt = `--sql d364e4f4-637a-4c06-a450-c0ca1844c144
insert into prompts(key, body, created_at, updated_at)
values ($1::text, $2::text, now(), now())
on conflict (key) do update
set body = excluded.body, updated_at = now();
`
