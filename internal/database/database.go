package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"
)

// --- Configuration ScyllaDB (catalogue produits) ---
type ScyllaCatalogConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	Timeout     time.Duration
	NumConns    int
	Consistency gocql.Consistency
}

// --- Variables Globales ---
var (
	Firestore    *firestore.Client
	FirebaseAuth *firebaseauth.Client
	Redis        *redis.Client
	RedisClient  *redis.Client // Alias pour compatibilité
	Elastic      *elasticsearch.Client
	MinIO        *minio.Client

	catalogSession *gocql.Session
)

// --- Initialisation ---
func ConnectDatabases() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. Initialiser Firestore + Firebase Auth (magasin de documents + identité)
	connectFirebase(ctx)

	// 2. Initialiser Redis (stockage persistant local : cache de rendu panier, autofill, états OAuth)
	connectRedis(ctx)

	// 3. Initialiser ScyllaDB (catalogue produits)
	if err := connectScylla(); err != nil {
		log.Fatalf("❌ Échec initialisation ScyllaDB: %v", err)
	}

	// 4. Initialiser Elasticsearch (recherche produits)
	connectElastic()

	// 5. Initialiser MinIO (images produits)
	connectMinIO(ctx)

	log.Println("✅ Toutes les bases de données sont connectées")
}

// =============================================
// FIRESTORE + FIREBASE AUTH
// =============================================

func connectFirebase(ctx context.Context) {
	projectID := os.Getenv("FIRESTORE_PROJECT_ID")
	if projectID == "" {
		projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if projectID == "" {
		log.Fatal("❌ FIRESTORE_PROJECT_ID ou GOOGLE_CLOUD_PROJECT manquant dans .env")
	}

	var opts []option.ClientOption
	if cred := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); cred != "" {
		opts = append(opts, option.WithCredentialsFile(cred))
	}

	fs, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		log.Fatal("❌ Erreur connexion Firestore:", err)
	}
	Firestore = fs
	log.Println("✅ Connecté à Firestore, projet", projectID)

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		log.Fatal("❌ Erreur initialisation Firebase:", err)
	}

	auth, err := app.Auth(ctx)
	if err != nil {
		// Mode identité "local" possible sans Firebase Auth, on continue
		log.Println("⚠️ Firebase Auth indisponible:", err)
		return
	}
	FirebaseAuth = auth
	log.Println("✅ Client Firebase Auth initialisé")
}

// =============================================
// SCYLLA DB (catalogue)
// =============================================

func loadScyllaConfig() ScyllaCatalogConfig {
	keyspace := os.Getenv("SCYLLA_KS_CATALOG_KEYSPACE")
	if keyspace == "" {
		keyspace = "catalog"
	}

	return ScyllaCatalogConfig{
		Hosts:       strings.Split(os.Getenv("SCYLLA_HOSTS"), ","),
		Keyspace:    keyspace,
		Username:    os.Getenv("SCYLLA_KS_CATALOG_ROLE"),
		Password:    os.Getenv("SCYLLA_KS_CATALOG_PASSWORD"),
		Timeout:     5 * time.Second,
		NumConns:    10,
		Consistency: gocql.Quorum,
	}
}

func connectScylla() error {
	config := loadScyllaConfig()

	cluster := gocql.NewCluster(config.Hosts...)
	cluster.Keyspace = config.Keyspace
	cluster.Consistency = config.Consistency
	cluster.Timeout = config.Timeout
	cluster.NumConns = config.NumConns
	cluster.ReconnectInterval = 1 * time.Second
	if config.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())

	session, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("erreur création session pour %s: %v", config.Keyspace, err)
	}

	catalogSession = session
	log.Printf("✅ Session ScyllaDB ouverte pour keyspace '%s'", config.Keyspace)
	return nil
}

// GetCatalogSession retourne la session du keyspace catalogue.
func GetCatalogSession() (*gocql.Session, error) {
	if catalogSession == nil {
		return nil, fmt.Errorf("session ScyllaDB non initialisée")
	}
	return catalogSession, nil
}

// CloseScylla ferme la session catalogue.
func CloseScylla() {
	if catalogSession != nil {
		catalogSession.Close()
		log.Println("🔌 Session ScyllaDB fermée")
	}
}

// =============================================
// REDIS
// =============================================
func connectRedis(ctx context.Context) {
	Redis = redis.NewClient(&redis.Options{
		Addr:     os.Getenv("REDIS_HOST"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
	RedisClient = Redis // Alias pour compatibilité

	if err := Redis.Ping(ctx).Err(); err != nil {
		log.Fatal("❌ Erreur connexion Redis:", err)
	}
	log.Println("✅ Connecté à Redis")
}

// =============================================
// ELASTICSEARCH
// =============================================
func connectElastic() {
	cfg := elasticsearch.Config{
		Addresses: []string{os.Getenv("ELASTIC_URL")},
		Username:  os.Getenv("ELASTIC_USER"),
		Password:  os.Getenv("ELASTIC_PASSWORD"),
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		log.Fatal("❌ Erreur création client Elasticsearch:", err)
	}

	res, err := client.Info()
	if err != nil {
		// La recherche retombe sur Scylla si ES est absent
		log.Println("⚠️ Elasticsearch indisponible:", err)
		return
	}
	defer res.Body.Close()

	Elastic = client
	log.Println("✅ Connecté à Elasticsearch")
}

// =============================================
// MINIO
// =============================================
func connectMinIO(ctx context.Context) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	secretKey := os.Getenv("MINIO_SECRET_KEY")
	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		log.Println("⚠️ MinIO non configuré :", err)
		return
	}

	bucketName := os.Getenv("MINIO_BUCKET")
	if bucketName == "" {
		bucketName = "medimart-images"
	}
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		log.Fatal("❌ Erreur vérification bucket MinIO:", err)
	}
	if !exists {
		err = client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
		if err != nil {
			log.Fatal("❌ Erreur création bucket MinIO:", err)
		}
		log.Println("🪣 Bucket créé :", bucketName)
	} else {
		log.Println("🪣 Bucket MinIO déjà présent :", bucketName)
	}

	MinIO = client
	log.Println("✅ Connecté à MinIO :", endpoint)
}
