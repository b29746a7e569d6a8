package sqlinline

const QEnqueueAnalysisJob = `--sql 1034b61f-a199-44fd-835f-10008440a3b9
insert into analysis_jobs(id, user_id, payload, status, attempts, available_at, created_at, updated_at)
values ($1::uuid, $2::uuid, $3::jsonb, 'queued', 0, now(), now(), now());
`

const QClaimAnalysisJob = `--sql 93ce44eb-4b1a-4777-adc7-537dd8a5df2d
with next_job as (
    select id
    from analysis_jobs
    where status = 'queued'
      and available_at <= now()
    order by created_at asc
    for update skip locked
    limit 1
),
updated as (
    update analysis_jobs
    set status = 'running', attempts = attempts + 1, updated_at = now()
    where id in (select id from next_job)
    returning id, user_id, payload, attempts
)
select * from updated;
`

const QCompleteAnalysisJob = `--sql 88172ca1-464d-4f55-99ad-3f1879ac2860
update analysis_jobs
set status = 'done', updated_at = now()
where id = $1::uuid;
`

const QRetryAnalysisJob = `--sql 34bfa28c-7d4e-4ed3-9691-2987ce29292c
update analysis_jobs
set status = 'queued', available_at = now() + ($2::int * interval '1 second'), updated_at = now()
where id = $1::uuid;
`

const QDeadAnalysisJob = `--sql e797d149-dd38-4806-ad75-af197fa2814e
update analysis_jobs
set status = 'dead', updated_at = now()
where id = $1::uuid;
`
