package sqlinline

const QUpsertScene = `--sql 8e1289f3-78bb-4d6f-ab13-3aa632901f4a
insert into scenes (
  project_id, scene_index, start_panel_path, end_panel_path,
  video_prompt, duration_seconds, status, error_message, updated_at
)
values ($1, $2, $3, $4, $5, $6, $7, $8, now())
on conflict (project_id, scene_index) do update set
  start_panel_path = excluded.start_panel_path,
  end_panel_path = excluded.end_panel_path,
  video_prompt = excluded.video_prompt,
  duration_seconds = excluded.duration_seconds,
  status = excluded.status,
  error_message = excluded.error_message,
  updated_at = now();
`

const QSelectScenesByProject = `--sql 85484147-e6a0-414c-9708-092c40afe618
select scene_index, start_panel_path, end_panel_path,
       video_prompt, duration_seconds, status, error_message, video_path
from scenes
where project_id = $1
order by scene_index;
`

const QSelectPendingScenes = `--sql d6981eab-871c-4695-84d6-a394ca38b351
select project_id, scene_index, start_panel_path, end_panel_path,
       video_prompt, duration_seconds
from scenes
where status = 'pending'
order by updated_at
limit $1;
`

const QUpdateSceneStatus = `--sql 5c1a7e83-c690-4e42-8963-4ad9ceadef91
update scenes
set status = $3,
    error_message = $4,
    video_path = coalesce($5, video_path),
    updated_at = now()
where project_id = $1 and scene_index = $2;
`

const QDeleteScenesByProject = `--sql c1cd4304-7059-4979-8c12-2a62bd49c15c
delete from scenes where project_id = $1;
`
