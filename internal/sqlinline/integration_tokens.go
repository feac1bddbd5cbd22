package sqlinline

const QSelectIntegrationToken = `--sql 3baf6022-f8fc-40dc-9835-8f761b5c9659
select token
from integration_tokens
where provider = $1;
`

const QUpsertIntegrationToken = `--sql a889fd6b-44c9-4a1e-9334-f56226e51ac0
insert into integration_tokens (provider, token, props, updated_at)
values ($1, $2, $3, now())
on conflict (provider) do update set
  token = excluded.token,
  props = excluded.props,
  updated_at = now();
`
