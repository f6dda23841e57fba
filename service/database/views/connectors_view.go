package views

var ConnectorViews = map[string]string{

	// 连接器概览视图 - 连接器配置加最近一次运行与累计统计，供前端列表页直接读取
	"connectors_overview": `
		DROP VIEW IF EXISTS connectors_overview;
		CREATE VIEW connectors_overview AS
		SELECT
			cc.id,
			cc.name,
			cc.description,
			cc.system_type,
			cc.hostname,
			cc.port,
			cc.client,
			cc.system_id,
			cc.api_type,
			cc.oauth_enabled,
			cc.sync_direction,
			cc.sync_frequency,
			cc.status,
			cc.last_check_at,
			cc.created_at,
			cc.created_by,
			cc.updated_at,
			cc.updated_by,
			-- 累计运行统计
			COALESCE(stats.total_runs, 0) as total_runs,
			COALESCE(stats.completed_runs, 0) as completed_runs,
			COALESCE(stats.failed_runs, 0) as failed_runs,
			COALESCE(stats.total_records_processed, 0) as total_records_processed,
			-- 最近一次运行对象
			latest.run as last_run
		FROM connector_configs cc
		LEFT JOIN (
			SELECT
				connector_id,
				COUNT(*) as total_runs,
				COUNT(*) FILTER (WHERE status = 'completed') as completed_runs,
				COUNT(*) FILTER (WHERE status = 'failed') as failed_runs,
				SUM(records_processed) as total_records_processed
			FROM sync_runs
			GROUP BY connector_id
		) stats ON stats.connector_id = cc.id
		LEFT JOIN LATERAL (
			SELECT jsonb_build_object(
				'id', sr.id,
				'status', sr.status,
				'started_at', sr.started_at,
				'completed_at', sr.completed_at,
				'progress', sr.progress,
				'error_code', sr.error_code,
				'triggered_by', sr.triggered_by
			) as run
			FROM sync_runs sr
			WHERE sr.connector_id = cc.id
			ORDER BY sr.started_at DESC
			LIMIT 1
		) latest ON true;
	`,
}
