package views

var SyncRunsViews = map[string]string{

	// 同步运行详细信息视图 - 包含运行的所有字段和所属连接器的摘要信息
	"sync_runs_info": `
		DROP VIEW IF EXISTS sync_runs_info;
		CREATE VIEW sync_runs_info AS
		SELECT
			sr.id,
			sr.connector_id,
			sr.status,
			sr.started_at,
			sr.completed_at,
			sr.progress,
			sr.records_processed,
			sr.records_created,
			sr.records_updated,
			sr.log_lines,
			sr.error_code,
			sr.error_message,
			sr.triggered_by,
			sr.created_at,
			sr.updated_at,
			-- 计算执行时长（秒）
			CASE
				WHEN sr.started_at IS NOT NULL AND sr.completed_at IS NOT NULL
				THEN EXTRACT(EPOCH FROM (sr.completed_at - sr.started_at))
				WHEN sr.started_at IS NOT NULL AND sr.completed_at IS NULL AND sr.status = 'running'
				THEN EXTRACT(EPOCH FROM (NOW() - sr.started_at))
				ELSE NULL
			END as duration_seconds,
			-- 连接器信息对象，来源：connector_configs表
			jsonb_build_object(
				'id', cc.id,
				'name', cc.name,
				'system_type', cc.system_type,
				'hostname', cc.hostname,
				'api_type', cc.api_type,
				'sync_direction', cc.sync_direction,
				'sync_frequency', cc.sync_frequency,
				'status', cc.status
			) as connector
		FROM sync_runs sr
		LEFT JOIN connector_configs cc ON sr.connector_id = cc.id;
	`,
}
