package sqlinline

const QUpsertStoryboard = `--sql 9a3a7e57-c9a5-4228-a45c-93fcd1553f9f
insert into storyboards (episode_id, payload, parse_status, updated_at)
values ($1, $2, $3, now())
on conflict (episode_id) do update set
  payload = excluded.payload,
  parse_status = excluded.parse_status,
  updated_at = now();
`

const QSelectStoryboard = `--sql f6720dd1-c06f-4273-a9d6-f825bf22a0c0
select payload, parse_status
from storyboards
where episode_id = $1;
`
