package sqlinline

// QEnqueueTryOnJob consumes one credit and inserts the job in a single
// statement so a concurrent submit cannot overdraw the balance. The outer
// select always returns one row; the insert branch is empty when the shop is
// missing, inactive, or out of credits.
const QEnqueueTryOnJob = `--sql 7d1c2f4e-9a31-4c8e-b6f2-0e5a8d93c1a4
with input as (
  select
    $1::text  as shop_domain,
    $2::text  as person_image_key,
    $3::text  as clothing_image_key,
    $4::text  as clothing_image_url,
    $5::text  as webhook_url,
    $6::text  as product_id,
    $7::text  as product_title,
    $8::text  as customer_id,
    $9::text  as customer_email,
    $10::text as aspect_ratio
),
shop as (
  select domain, credit_balance, plan, active
  from shops
  where domain = (select shop_domain from input)
  for update
),
consumed as (
  update shops s
  set credit_balance = s.credit_balance - 1,
      updated_at = now()
  where s.domain = (select domain from shop where active and credit_balance > 0)
  returning s.domain, s.credit_balance, s.plan
),
ins_job as (
  insert into tryon_jobs(
    id,
    shop_domain,
    status,
    person_image_key,
    clothing_image_key,
    clothing_image_url,
    webhook_url,
    product_id,
    product_title,
    customer_id,
    customer_email,
    aspect_ratio
  )
  select
    gen_random_uuid(),
    shop_domain,
    'pending',
    person_image_key,
    clothing_image_key,
    clothing_image_url,
    webhook_url,
    product_id,
    product_title,
    customer_id,
    customer_email,
    aspect_ratio
  from input
  where exists (select 1 from consumed)
  returning id
)
select
  (select id::text from ins_job),
  (select active from shop),
  (select credit_balance from shop),
  (select plan from shop),
  (select credit_balance from consumed);
`

const QSelectJobByID = `--sql 3b9e6a12-57cd-4f04-8a1e-2fd6c470b9e8
select
  id::text,
  shop_domain,
  status,
  person_image_key,
  clothing_image_key,
  clothing_image_url,
  image_url,
  error_code,
  error_message,
  webhook_url,
  product_id,
  product_title,
  customer_id,
  customer_email,
  aspect_ratio,
  created_at,
  updated_at
from tryon_jobs
where id = $1::uuid;
`

const QWorkerClaimJob = `--sql 4f55a9b7-4e9f-4e45-a3b3-5a532d21d9db
with next_job as (
    select id
    from tryon_jobs
    where status = 'pending'
    order by created_at asc
    for update skip locked
    limit 1
),
updated as (
    update tryon_jobs
    set status = 'processing', updated_at = now()
    where id in (select id from next_job)
    returning
      id::text,
      shop_domain,
      person_image_key,
      clothing_image_key,
      clothing_image_url,
      webhook_url,
      product_id,
      product_title,
      customer_id,
      customer_email,
      aspect_ratio,
      created_at,
      updated_at
)
select * from updated;
`

const QRequeueJob = `--sql 9e2d6b84-1c57-4f0a-ba93-d48e07f2c561
update tryon_jobs
set status = 'pending',
    updated_at = now()
where id = $1::uuid
  and status = 'processing';
`

// Terminal updates guard on non-terminal status so a completed or failed job
// can never flap back.
const QCompleteJob = `--sql a6c0d8f1-23b4-4f7e-9d52-8e1b64c7a903
update tryon_jobs
set status = 'completed',
    image_url = $2::text,
    updated_at = now()
where id = $1::uuid
  and status in ('pending', 'processing');
`

const QFailJob = `--sql c2e74b09-61af-4d38-b517-f90a3d2c6e85
update tryon_jobs
set status = 'failed',
    error_code = $2::text,
    error_message = $3::text,
    updated_at = now()
where id = $1::uuid
  and status in ('pending', 'processing');
`

const QSelectCompletedJobsForShop = `--sql 58d3a7c6-0f92-4b61-ae84-7c15e9b0d2f3
select
  id::text,
  shop_domain,
  image_url,
  product_id,
  product_title,
  aspect_ratio,
  created_at,
  updated_at
from tryon_jobs
where shop_domain = $1::text
  and status = 'completed'
order by created_at desc
limit $2::int;
`
