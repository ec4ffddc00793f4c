package sqlinline

const QSelectShopByDomain = `--sql 91f4c2d8-6b3a-4e07-8c51-d2a9f6e04b17
select domain, access_token, plan, credit_balance, active, installed_at, updated_at
from shops
where domain = $1::text;
`

const QUpsertShop = `--sql e7a31b58-94cd-4f26-a0d9-b85e12f7c643
insert into shops (domain, access_token, plan, credit_balance, active, installed_at, updated_at)
values ($1::text, $2::text, $3::text, $4::int, true, now(), now())
on conflict (domain) do update set
    access_token = excluded.access_token,
    plan = excluded.plan,
    active = true,
    updated_at = now();
`

// QDeactivateShop clears the token on app/uninstalled; Shopify revokes it
// server-side, keeping it around is only a liability.
const QDeactivateShop = `--sql 0b8d5f21-c743-4a9e-b162-39e7d0a4c5f8
update shops
set active = false,
    access_token = '',
    updated_at = now()
where domain = $1::text;
`

const QSetShopPlan = `--sql 3d7b1e92-f460-4a58-9c03-e82b5d1f6a47
update shops
set plan = $2::text,
    updated_at = now()
where domain = $1::text;
`

const QGrantShopCredits = `--sql 6f2e9a03-8d51-4c74-b3e8-a190c6d5f427
update shops
set credit_balance = credit_balance + $2::int,
    updated_at = now()
where domain = $1::text
returning credit_balance, plan;
`
