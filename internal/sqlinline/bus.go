package sqlinline

const QNotify = `--sql 526790c0-e05f-4922-92d0-fbdca2926077
select pg_notify($1::text, $2::text);
`
