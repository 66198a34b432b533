package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server       Server
	Database     Database
	GeminiApiKey string
	Generation   Generation
	Embedding    Embedding
	Upload       Upload
	Chunking     Chunking
}

type Server struct {
	Port string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// Generation holds LLM completion settings for question generation and grading.
type Generation struct {
	Model       string
	Temperature float32
	MaxTokens   int32
}

// Embedding holds the embedding model settings for the vector index.
type Embedding struct {
	Model string
}

type Upload struct {
	Dir string
}

type Chunking struct {
	MaxChunkSize int
	Overlap      int
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("GENERATION_MODEL", "gemini-1.5-flash")
	viper.SetDefault("GENERATION_TEMPERATURE", 0.7)
	viper.SetDefault("GENERATION_MAX_TOKENS", 2048)
	viper.SetDefault("EMBEDDING_MODEL", "text-embedding-004")
	viper.SetDefault("UPLOAD_DIR", "uploads")
	viper.SetDefault("CHUNK_MAX_SIZE", 1000)
	viper.SetDefault("CHUNK_OVERLAP", 200)

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")

	config.GeminiApiKey = viper.GetString("GEMINI_API_KEY")
	config.Generation.Model = viper.GetString("GENERATION_MODEL")
	config.Generation.Temperature = float32(viper.GetFloat64("GENERATION_TEMPERATURE"))
	config.Generation.MaxTokens = viper.GetInt32("GENERATION_MAX_TOKENS")
	config.Embedding.Model = viper.GetString("EMBEDDING_MODEL")
	config.Upload.Dir = viper.GetString("UPLOAD_DIR")
	config.Chunking.MaxChunkSize = viper.GetInt("CHUNK_MAX_SIZE")
	config.Chunking.Overlap = viper.GetInt("CHUNK_OVERLAP")

	log.Info().Str("port", config.Server.Port).Str("db", config.Database.Name).Msg("Config loaded")
	return &config, nil
}
