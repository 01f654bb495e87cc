package utils

import (
	"os"
	"testing"

	"github.com/cppla/emoticket/config"
)

func TestMain(m *testing.M) {
	// no Redis host: cache and locks use their in-process paths
	config.Set(config.AppConfig{JWTSecret: "test-jwt", TicketSecret: "test-ticket"})
	os.Exit(m.Run())
}
