package local

import (
	"context"
	"errors"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jUsers stores accounts and refresh tokens in Neo4j.
type Neo4jUsers struct {
	driver neo4j.DriverWithContext
}

var _ UserStore = (*Neo4jUsers)(nil)

// NewNeo4jUsers creates a new instance of Neo4jUsers.
func NewNeo4jUsers(driver neo4j.DriverWithContext) *Neo4jUsers {
	return &Neo4jUsers{driver: driver}
}

// EnsureSchema creates the uniqueness constraints the stores rely on.
func EnsureSchema(ctx context.Context, driver neo4j.DriverWithContext) error {
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for _, stmt := range []string{
		"CREATE CONSTRAINT user_email IF NOT EXISTS FOR (u:User) REQUIRE u.email IS UNIQUE",
		"CREATE CONSTRAINT task_id IF NOT EXISTS FOR (t:Task) REQUIRE t.id IS UNIQUE",
		"CREATE CONSTRAINT refresh_token IF NOT EXISTS FOR (r:RefreshToken) REQUIRE r.token IS UNIQUE",
	} {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return err
		}
		if _, err := res.Consume(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CreateUser adds an account. A taken email yields ErrUserExists.
func (s *Neo4jUsers) CreateUser(ctx context.Context, u User) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, "MATCH (u:User {email: $email}) RETURN count(u) AS n",
			map[string]any{"email": u.Email})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		if n, _ := record.Values[0].(int64); n > 0 {
			return nil, ErrUserExists
		}

		_, err = tx.Run(ctx,
			"CREATE (u:User {id: $id, email: $email, password_hash: $hash, created_at: $created_at})",
			map[string]any{
				"id":         u.ID,
				"email":      u.Email,
				"hash":       u.PasswordHash,
				"created_at": u.CreatedAt,
			},
		)
		return nil, err
	})
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) && neoErr.Code == "Neo.ClientError.Schema.ConstraintValidationFailed" {
		return ErrUserExists
	}
	return err
}

// UserByEmail looks an account up by its normalized email.
func (s *Neo4jUsers) UserByEmail(ctx context.Context, email string) (User, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (u:User {email: $email}) "+
				"RETURN u.id AS id, u.email AS email, u.password_hash AS password_hash, u.created_at AS created_at",
			map[string]any{"email": email},
		)
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			return userFromRecord(res.Record()), nil
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return nil, ErrUserNotFound
	})
	if err != nil {
		return User{}, err
	}
	return result.(User), nil
}

// SaveRefreshToken links a new refresh token to the account.
func (s *Neo4jUsers) SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (u:User {id: $user_id}) "+
				"CREATE (u)-[:HAS_REFRESH_TOKEN]->(:RefreshToken {token: $token, expires_at: $expires_at})",
			map[string]any{
				"user_id":    userID,
				"token":      token,
				"expires_at": expiresAt.UTC(),
			},
		)
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		if summary.Counters().NodesCreated() == 0 {
			return nil, ErrUserNotFound
		}
		return nil, nil
	})
	return err
}

// TakeRefreshToken consumes a refresh token and returns its owner.
func (s *Neo4jUsers) TakeRefreshToken(ctx context.Context, token string, now time.Time) (User, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (u:User)-[:HAS_REFRESH_TOKEN]->(r:RefreshToken {token: $token}) "+
				"WITH u, r, r.expires_at > $now AS live "+
				"DETACH DELETE r "+
				"RETURN u.id AS id, u.email AS email, u.password_hash AS password_hash, u.created_at AS created_at, live",
			map[string]any{"token": token, "now": now.UTC()},
		)
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, ErrInvalidRefreshToken
		}
		record := res.Record()
		live, _ := record.Values[4].(bool)
		return takenToken{user: userFromRecord(record), live: live}, nil
	})
	if err != nil {
		return User{}, err
	}
	// An expired token is still consumed; the delete above has committed.
	taken := result.(takenToken)
	if !taken.live {
		return User{}, ErrInvalidRefreshToken
	}
	return taken.user, nil
}

type takenToken struct {
	user User
	live bool
}

// RevokeRefreshTokens deletes every refresh token of the account.
func (s *Neo4jUsers) RevokeRefreshTokens(ctx context.Context, userID string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx,
			"MATCH (:User {id: $user_id})-[:HAS_REFRESH_TOKEN]->(r:RefreshToken) DETACH DELETE r",
			map[string]any{"user_id": userID},
		)
		return nil, err
	})
	return err
}

func userFromRecord(record *neo4j.Record) User {
	return User{
		ID:           stringValue(record, "id"),
		Email:        stringValue(record, "email"),
		PasswordHash: stringValue(record, "password_hash"),
		CreatedAt:    timeValue(record, "created_at"),
	}
}

func stringValue(record *neo4j.Record, key string) string {
	v, _ := record.Get(key)
	s, _ := v.(string)
	return s
}

func timeValue(record *neo4j.Record, key string) time.Time {
	v, _ := record.Get(key)
	switch t := v.(type) {
	case time.Time:
		return t
	case neo4j.LocalDateTime:
		return t.Time()
	}
	return time.Time{}
}
