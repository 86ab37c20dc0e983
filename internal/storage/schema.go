package storage

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS subjects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		icon TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	)`,
	// Topics keep the order they were added in.
	`CREATE TABLE IF NOT EXISTS topics (
		subject_id TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (subject_id, name)
	)`,
	// Sources are question banks: a local directory or a git repository.
	`CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		last_scanned DATETIME
	)`,
	// rating is NULL until the question is first rated.
	`CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		subject_id TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
		subject_name TEXT NOT NULL,
		topic_name TEXT NOT NULL,
		rating TEXT,
		next_review_at DATETIME NOT NULL,
		last_reviewed_at DATETIME,
		ease_factor REAL NOT NULL DEFAULT 2.5,
		repetitions INTEGER NOT NULL DEFAULT 0,
		interval_days INTEGER NOT NULL DEFAULT 1,
		important BOOLEAN NOT NULL DEFAULT 0,
		source_id TEXT REFERENCES sources(id) ON DELETE SET NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_subject ON questions(subject_id, topic_name)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_source ON questions(source_id)`,
	// A single row holds the study aggregate.
	`CREATE TABLE IF NOT EXISTS study_stats (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		total_answers INTEGER NOT NULL DEFAULT 0,
		streak INTEGER NOT NULL DEFAULT 0,
		last_study_at DATETIME,
		again_count INTEGER NOT NULL DEFAULT 0,
		hard_count INTEGER NOT NULL DEFAULT 0,
		medium_count INTEGER NOT NULL DEFAULT 0,
		easy_count INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS daily_attempts (
		day TEXT PRIMARY KEY,
		attempts INTEGER NOT NULL DEFAULT 0
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS subjects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		icon TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS topics (
		subject_id TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (subject_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		last_scanned TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		subject_id TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
		subject_name TEXT NOT NULL,
		topic_name TEXT NOT NULL,
		rating TEXT,
		next_review_at TIMESTAMPTZ NOT NULL,
		last_reviewed_at TIMESTAMPTZ,
		ease_factor DOUBLE PRECISION NOT NULL DEFAULT 2.5,
		repetitions INTEGER NOT NULL DEFAULT 0,
		interval_days INTEGER NOT NULL DEFAULT 1,
		important BOOLEAN NOT NULL DEFAULT FALSE,
		source_id TEXT REFERENCES sources(id) ON DELETE SET NULL,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_subject ON questions(subject_id, topic_name)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_source ON questions(source_id)`,
	`CREATE TABLE IF NOT EXISTS study_stats (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		total_answers INTEGER NOT NULL DEFAULT 0,
		streak INTEGER NOT NULL DEFAULT 0,
		last_study_at TIMESTAMPTZ,
		again_count INTEGER NOT NULL DEFAULT 0,
		hard_count INTEGER NOT NULL DEFAULT 0,
		medium_count INTEGER NOT NULL DEFAULT 0,
		easy_count INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS daily_attempts (
		day TEXT PRIMARY KEY,
		attempts INTEGER NOT NULL DEFAULT 0
	)`,
}
