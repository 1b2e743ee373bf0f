package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE pipelines (
				id VARCHAR(255) PRIMARY KEY,
				execution_id VARCHAR(255) NOT NULL,
				graph_id VARCHAR(255) NOT NULL,
				name VARCHAR(255),
				status VARCHAR(50) NOT NULL,
				max_concurrent_jobs INT NOT NULL DEFAULT 1,
				job_priority_strategy VARCHAR(50) NOT NULL,
				retry_strategy VARCHAR(50) NOT NULL,
				max_iterations INT NOT NULL DEFAULT 0,
				iterations INT NOT NULL DEFAULT 0,
				input_data JSONB DEFAULT '{}',
				output_data JSONB DEFAULT '{}',
				error_message TEXT,
				metadata JSONB DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_pipelines_status ON pipelines(status);
			CREATE INDEX idx_pipelines_graph_id ON pipelines(graph_id);
			CREATE INDEX idx_pipelines_created_at ON pipelines(created_at);

			CREATE TABLE jobs (
				id VARCHAR(255) PRIMARY KEY,
				pipeline_id VARCHAR(255) NOT NULL REFERENCES pipelines(id) ON DELETE CASCADE,
				node_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				sequence INT NOT NULL,
				priority INT NOT NULL DEFAULT 0,
				retry_count INT NOT NULL DEFAULT 0,
				max_retries INT NOT NULL DEFAULT 0,
				available_at TIMESTAMP WITH TIME ZONE,
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_jobs_pipeline_id ON jobs(pipeline_id);
			CREATE INDEX idx_jobs_status ON jobs(status);
			CREATE UNIQUE INDEX idx_jobs_pipeline_node ON jobs(pipeline_id, node_id);
		`,
	}
}
