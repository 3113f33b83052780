package store

import "database/sql"

// Migrate applies the schema. Uniqueness constraints here are the
// authoritative guards for every invariant the services pre-check in code:
// email, fingerprint, student/staff IDs, course codes, one enrollment per
// (student, course), one record per (student, session), one ledger row per
// user and unique reset tokens.
func Migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id                BIGSERIAL PRIMARY KEY,
		email             TEXT NOT NULL,
		password_hash     TEXT NOT NULL,
		name              TEXT NOT NULL,
		role              TEXT NOT NULL,
		student_id        TEXT,
		staff_id          TEXT,
		student_sequence  BIGINT,
		staff_sequence    BIGINT,
		department        TEXT NOT NULL DEFAULT '',
		fingerprint_id    TEXT,
		face_id           TEXT,
		avatar            TEXT NOT NULL DEFAULT '',
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uk_users_email UNIQUE (email),
		CONSTRAINT uk_users_student_id UNIQUE (student_id),
		CONSTRAINT uk_users_staff_id UNIQUE (staff_id),
		CONSTRAINT uk_users_fingerprint_id UNIQUE (fingerprint_id)
	);
	CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);

	CREATE TABLE IF NOT EXISTS courses (
		id           BIGSERIAL PRIMARY KEY,
		code         TEXT NOT NULL,
		name         TEXT NOT NULL DEFAULT '',
		lecturer_id  BIGINT NOT NULL REFERENCES users(id),
		department   TEXT NOT NULL DEFAULT '',
		credits      INT NOT NULL DEFAULT 0,
		schedule     TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uk_courses_code UNIQUE (code)
	);

	CREATE TABLE IF NOT EXISTS course_enrollments (
		id           BIGSERIAL PRIMARY KEY,
		student_id   BIGINT NOT NULL REFERENCES users(id),
		course_id    BIGINT NOT NULL REFERENCES courses(id),
		enrolled_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uk_enrollments_pair UNIQUE (student_id, course_id)
	);

	CREATE TABLE IF NOT EXISTS attendance_sessions (
		id                 BIGSERIAL PRIMARY KEY,
		course_id          BIGINT NOT NULL REFERENCES courses(id),
		lecturer_id        BIGINT NOT NULL REFERENCES users(id),
		session_date       TEXT NOT NULL,
		start_time         TEXT NOT NULL,
		end_time           TEXT,
		started_at         TIMESTAMPTZ,
		ended_at           TIMESTAMPTZ,
		status             TEXT NOT NULL,
		biometric_enabled  BOOLEAN NOT NULL DEFAULT TRUE,
		attendance_type    TEXT NOT NULL DEFAULT 'FINGERPRINT',
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_course ON attendance_sessions(course_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_lecturer ON attendance_sessions(lecturer_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_status ON attendance_sessions(status);

	CREATE TABLE IF NOT EXISTS attendance_records (
		id                  BIGSERIAL PRIMARY KEY,
		student_id          BIGINT NOT NULL REFERENCES users(id),
		course_id           BIGINT NOT NULL REFERENCES courses(id),
		session_id          BIGINT NOT NULL REFERENCES attendance_sessions(id),
		marked_at           TIMESTAMPTZ NOT NULL,
		method              TEXT NOT NULL,
		status              TEXT NOT NULL,
		verification_score  DOUBLE PRECISION,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uk_records_student_session UNIQUE (student_id, session_id)
	);
	CREATE INDEX IF NOT EXISTS idx_records_course ON attendance_records(course_id);
	CREATE INDEX IF NOT EXISTS idx_records_session ON attendance_records(session_id);

	CREATE TABLE IF NOT EXISTS biometric_enrollments (
		id                    BIGSERIAL PRIMARY KEY,
		user_id               BIGINT NOT NULL REFERENCES users(id),
		fingerprint_enrolled  BOOLEAN NOT NULL DEFAULT FALSE,
		face_enrolled         BOOLEAN NOT NULL DEFAULT FALSE,
		enrolled_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uk_biometric_user UNIQUE (user_id)
	);

	CREATE TABLE IF NOT EXISTS password_reset_tokens (
		id          BIGSERIAL PRIMARY KEY,
		user_id     BIGINT NOT NULL REFERENCES users(id),
		token       TEXT NOT NULL,
		expires_at  TIMESTAMPTZ NOT NULL,
		used_at     TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uk_reset_token UNIQUE (token)
	);
	CREATE INDEX IF NOT EXISTS idx_reset_user ON password_reset_tokens(user_id);
	`
	_, err := db.Exec(schema)
	return err
}
