package sqlinline

const QInsertDesign = `--sql 3b8f6a2e-5d41-4c7a-9e0b-7f21c4d8a913
insert into designs(
  id,
  user_id,
  prompt,
  style,
  size,
  image_url,
  storage_path,
  overlays
) values (
  $1::uuid,
  $2,
  $3,
  nullif($4, ''),
  nullif($5, ''),
  $6,
  nullif($7, ''),
  $8::jsonb
)
returning created_at;
`

const QListDesignsByUser = `--sql c0e4d217-98ab-4f5e-b6a1-2d3c5e7f9a04
select
  id::text,
  user_id,
  prompt,
  coalesce(style, ''),
  coalesce(size, ''),
  image_url,
  coalesce(storage_path, ''),
  overlays,
  created_at
from designs
where user_id = $1
order by created_at desc
limit $2::int offset $3::int;
`
