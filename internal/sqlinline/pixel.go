package sqlinline

const QInsertPixelEvent = `--sql 2a7f0c91-45de-4b38-8e6a-1d9c53b0f724
insert into pixel_events (id, shop_domain, session_id, kind, product_id, country, locale, properties, created_at)
values (gen_random_uuid(), $1::text, $2::text, $3::text, $4::text, $5::text, $6::text, coalesce($7::jsonb, '{}'::jsonb), now());
`

const QPixelSummary24h = `--sql b4d86e15-a09f-4372-9c28-5f6e1a3d7c90
select
  count(*) filter (where kind = 'widget_opened'),
  count(*) filter (where kind = 'tryon_started'),
  count(*) filter (where kind = 'tryon_completed'),
  count(*) filter (where kind = 'add_to_cart'),
  count(distinct session_id)
from pixel_events
where shop_domain = $1::text
  and created_at > now() - interval '24 hours';
`
