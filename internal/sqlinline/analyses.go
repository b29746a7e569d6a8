package sqlinline

const QInsertAnalysis = `--sql 42b25c88-1212-417b-9f56-35cf38685267
insert into analyses(id, user_id, status, variant, created_at, updated_at)
values ($1::uuid, $2::uuid, 'pending', $3::text, now(), now());
`

const QSelectAnalysisByID = `--sql 598387fb-74d7-4509-b7b7-81b8a5885294
select id, user_id, status, variant,
       coalesce(result_text, ''),
       coalesce(summary_text, ''),
       coalesce(card_image_ref, ''),
       coalesce(error_message, ''),
       created_at, updated_at
from analyses
where id = $1::uuid
limit 1;
`

const QMarkAnalysisCompleted = `--sql 3c9a1020-db08-473c-8e1b-b64ec48aa022
update analyses
set status = 'completed',
    result_text = $2::text,
    summary_text = nullif($3::text, ''),
    card_image_ref = nullif($4::text, ''),
    updated_at = now()
where id = $1::uuid
  and status = 'pending';
`

const QMarkAnalysisFailed = `--sql 31998e95-d690-4349-a999-650949b65292
update analyses
set status = 'failed',
    error_message = $2::text,
    updated_at = now()
where id = $1::uuid
  and status = 'pending';
`

const QDeleteAnalysis = `--sql 6825df38-8465-430a-9b04-27bee8bce4aa
delete from analyses
where id = $1::uuid;
`
