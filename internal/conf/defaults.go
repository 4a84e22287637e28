// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "alprd")
	viper.SetDefault("main.log.level", "info")
	viper.SetDefault("main.log.path", "logs")

	viper.SetDefault("recognizer.url", "")
	viper.SetDefault("recognizer.statisticsurl", "")
	viper.SetDefault("recognizer.apitoken", "")
	viper.SetDefault("recognizer.timeout", 10)

	viper.SetDefault("cameras", []map[string]any{})

	viper.SetDefault("watch.plates", []string{})
	viper.SetDefault("watch.tolerance", 2)

	viper.SetDefault("save.filefolder", "")
	viper.SetDefault("save.timestampedfile", false)
	viper.SetDefault("save.alwayslatest", false)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topicbase", "alpr")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.retain", false)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8090")

	viper.SetDefault("eventdedupseconds", 0)
}
