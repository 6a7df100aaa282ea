package conf

import "github.com/spf13/viper"

// DefaultBoxCapacity is the deployed slot count per sorting box.
const DefaultBoxCapacity = 5

// setDefaults registers the default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.maxsize", 10)
	v.SetDefault("log.maxbackups", 3)
	v.SetDefault("log.maxage", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("output.sqlite.enabled", true)
	v.SetDefault("output.sqlite.path", "aoi.db")

	v.SetDefault("output.mysql.enabled", false)
	v.SetDefault("output.mysql.username", "aoi")
	v.SetDefault("output.mysql.password", "")
	v.SetDefault("output.mysql.host", "localhost")
	v.SetDefault("output.mysql.port", "3306")
	v.SetDefault("output.mysql.database", "aoi")

	v.SetDefault("sorting.boxcapacity", DefaultBoxCapacity)
}
