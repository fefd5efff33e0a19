package db

// schemaTemplate is the schema initialization SQL. The single %d verb is the
// HNSW embedding dimension.
const schemaTemplate = `
    -- ==========================================================================
    -- INDEXING JOB TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS indexing_job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS project_id ON indexing_job TYPE string;
    DEFINE FIELD IF NOT EXISTS repo_ref ON indexing_job TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON indexing_job TYPE string DEFAULT 'queued';
    DEFINE FIELD IF NOT EXISTS progress ON indexing_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS locked_at ON indexing_job TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS locked_by ON indexing_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS error ON indexing_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON indexing_job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON indexing_job TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS job_status ON indexing_job FIELDS status;
    DEFINE INDEX IF NOT EXISTS job_project ON indexing_job FIELDS project_id;
    DEFINE INDEX IF NOT EXISTS job_created ON indexing_job FIELDS created_at;

    -- ==========================================================================
    -- CODE EMBEDDING TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS code_embedding SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS project_id ON code_embedding TYPE string;
    DEFINE FIELD IF NOT EXISTS file_name ON code_embedding TYPE string;
    DEFINE FIELD IF NOT EXISTS source_code ON code_embedding TYPE string;
    DEFINE FIELD IF NOT EXISTS summary ON code_embedding TYPE string;
    DEFINE FIELD IF NOT EXISTS embedding ON code_embedding TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS created_at ON code_embedding TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS embedding_project ON code_embedding FIELDS project_id;
    DEFINE INDEX IF NOT EXISTS embedding_vector ON code_embedding FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;

    -- ==========================================================================
    -- QUERY METRIC TABLE (append-only)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS query_metric SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS project_id ON query_metric TYPE string;
    DEFINE FIELD IF NOT EXISTS route_type ON query_metric TYPE string;
    DEFINE FIELD IF NOT EXISTS model_used ON query_metric TYPE string;
    DEFINE FIELD IF NOT EXISTS prompt_tokens ON query_metric TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS completion_tokens ON query_metric TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS total_tokens ON query_metric TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS retrieval_count ON query_metric TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS memory_hit_count ON query_metric TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS latency_ms ON query_metric TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS estimated_cost_usd ON query_metric TYPE float DEFAULT 0.0;
    DEFINE FIELD IF NOT EXISTS success ON query_metric TYPE bool;
    DEFINE FIELD IF NOT EXISTS error_message ON query_metric TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS cache_hit ON query_metric TYPE option<bool>;
    DEFINE FIELD IF NOT EXISTS was_cold_start ON query_metric TYPE option<bool>;
    DEFINE FIELD IF NOT EXISTS avg_memory_similarity ON query_metric TYPE option<float>;
    DEFINE FIELD IF NOT EXISTS created_at ON query_metric TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS metric_project ON query_metric FIELDS project_id;
    DEFINE INDEX IF NOT EXISTS metric_created ON query_metric FIELDS created_at;
`
