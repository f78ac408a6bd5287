package sqlinline

const QInsertDonation = `--sql 3c1f6e0a-8d42-4b7e-9a51-6f2d0c9b7e14
insert into donations(id, name, email, amount, transaction_hash, gateway, country, created_at)
values (
  $1::uuid,
  $2::text,
  $3::text,
  $4::text::numeric,
  nullif($5::text, ''),
  nullif($6::text, ''),
  nullif($7::text, ''),
  now()
)
returning created_at;
`

const QListDonations = `--sql 8e5b2d71-04c9-4f63-b1a8-2c7d9e3f6a50
select
  id::text,
  name,
  email,
  amount::text,
  coalesce(transaction_hash, ''),
  coalesce(gateway, ''),
  coalesce(country, ''),
  created_at
from donations
order by seq asc;
`
