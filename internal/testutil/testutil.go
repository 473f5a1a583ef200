package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meritan/go-curator/internal/auth"
	"github.com/meritan/go-curator/internal/database/models"
	"github.com/meritan/go-curator/pkg/crypto"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Organization{},
		&models.User{},
		&models.Taxonomy{},
		&models.Category{},
		&models.Material{},
		&models.ProductType{},
		&models.Product{},
		&models.File{},
		&models.Camera{},
		&models.ScheduledCapture{},
		&models.NewsletterSubscriber{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CreateTestOrg creates a test organization
func CreateTestOrg(t *testing.T, db *gorm.DB) *models.Organization {
	t.Helper()

	org := &models.Organization{
		Base: models.Base{
			ID: uuid.New(),
		},
		Name: "Test Organization",
		Slug: "test-org-" + uuid.New().String()[:8],
	}

	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}

	return org
}

// CreateTestUser creates a test user with the given organization and role
func CreateTestUser(t *testing.T, db *gorm.DB, org *models.Organization, role string) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Base: models.Base{
			ID: uuid.New(),
		},
		Email:          "test-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash:   hash,
		Name:           "Test User",
		OrganizationID: org.ID,
		Role:           role,
		IsActive:       true,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	user.Organization = org
	return user
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// CreateTestEncryptor creates an encryptor with a throwaway key
func CreateTestEncryptor(t *testing.T) *crypto.Encryptor {
	t.Helper()

	enc, err := crypto.NewEncryptor("")
	if err != nil {
		t.Fatalf("failed to create test encryptor: %v", err)
	}
	return enc
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, user.OrganizationID, user.Email, user.Role)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// CreateTestProduct creates a test product owned by the given user
func CreateTestProduct(t *testing.T, db *gorm.DB, ownerID uuid.UUID, name string) *models.Product {
	t.Helper()

	product := &models.Product{
		Base: models.Base{
			ID: uuid.New(),
		},
		OwnerID: ownerID,
		Name:    name,
	}

	if err := db.Create(product).Error; err != nil {
		t.Fatalf("failed to create test product: %v", err)
	}

	return product
}

// CreateTestCamera creates a test camera owned by the given user. The API
// key ciphertext is produced with the given encryptor so device clients can
// decrypt it.
func CreateTestCamera(t *testing.T, db *gorm.DB, enc *crypto.Encryptor, ownerID uuid.UUID, connectionURL string) *models.Camera {
	t.Helper()

	encKey, err := enc.EncryptString("test-api-key")
	if err != nil {
		t.Fatalf("failed to encrypt test api key: %v", err)
	}

	cam := &models.Camera{
		Base: models.Base{
			ID: uuid.New(),
		},
		OwnerID:         ownerID,
		Name:            "Test Camera",
		ConnectionURL:   connectionURL,
		EncryptedAPIKey: encKey,
		IsActive:        true,
	}

	if err := db.Create(cam).Error; err != nil {
		t.Fatalf("failed to create test camera: %v", err)
	}

	return cam
}

// CreateTestTaxonomy creates a test taxonomy
func CreateTestTaxonomy(t *testing.T, db *gorm.DB, name, version string) *models.Taxonomy {
	t.Helper()

	tax := &models.Taxonomy{
		Base: models.Base{
			ID: uuid.New(),
		},
		Name:    name,
		Version: version,
		Domains: "[]",
	}

	if err := db.Create(tax).Error; err != nil {
		t.Fatalf("failed to create test taxonomy: %v", err)
	}

	return tax
}

// CreateTestFile creates a file row attached to the given product
func CreateTestFile(t *testing.T, db *gorm.DB, productID uuid.UUID, kind models.FileKind) *models.File {
	t.Helper()

	file := &models.File{
		Base: models.Base{
			ID: uuid.New(),
		},
		ProductID:   productID,
		Kind:        kind,
		Name:        "test-file",
		ObjectKey:   "test/" + uuid.New().String(),
		ContentType: "image/jpeg",
		SizeBytes:   3,
	}

	if err := db.Create(file).Error; err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	return file
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

var errObjectNotFound = errors.New("object not found")

// MemoryStore is an in-memory storage.ObjectStore for tests.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[key] = cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errObjectNotFound
	}
	return data, nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

// Len reports how many objects are stored.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Encryptor  *crypto.Encryptor
	Store      *MemoryStore
	Org        *models.Organization
	User       *models.User
	Token      string
}

// NewTestContext creates a complete test setup with DB, org, user, and token
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	enc := CreateTestEncryptor(t)
	org := CreateTestOrg(t, db)
	user := CreateTestUser(t, db, org, models.RoleOwner)
	token := GenerateTestToken(t, jwtService, user)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Encryptor:  enc,
		Store:      NewMemoryStore(),
		Org:        org,
		User:       user,
		Token:      token,
	}
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
