package articles

import (
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaultsAreIdempotent(t *testing.T) {
	once := Config{PageDelaySeconds: -1}.WithDefaults()
	twice := once.WithDefaults()
	require.Equal(t, once, twice)
	require.Equal(t, time.Duration(0), twice.PageDelay())

	unset := Config{}.WithDefaults().WithDefaults()
	require.Equal(t, time.Second, unset.PageDelay())
	require.Equal(t, 5, unset.MaxPages)
}

func TestDisabledPageDelaySurvivesConstruction(t *testing.T) {
	config := Config{PageDelaySeconds: -1}.WithDefaults()
	lister := NewLister(resty.New(), config, Credentials{}, nil)
	crawler := NewCrawler(config, lister, nil, nil)
	require.Equal(t, time.Duration(0), crawler.config.PageDelay())
}
