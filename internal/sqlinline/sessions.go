package sqlinline

const QUpsertPixelSession = `--sql d9c45a72-1e08-4f63-b2d7-8a30c6e9f154
insert into pixel_sessions (id, shop_domain, properties, created_at, updated_at)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (id) do update set
    properties = excluded.properties,
    updated_at = now();
`

const QSelectPixelSession = `--sql 5e8b1f40-7ac9-4d25-93e6-c0d2a84f7b61
select shop_domain, properties
from pixel_sessions
where id = $1::text;
`

const QDeletePixelSession = `--sql f07a3c58-b621-4e94-8d50-37b9e1c4a206
delete from pixel_sessions
where id = $1::text;
`
