package envvar

const (
	// ScribeEnv is the environment variable used to determine the environment
	ScribeEnv = "SCRIBE_ENV"

	// ScribeServerHTTPPort is the environment variable used to determine the HTTP port
	ScribeServerHTTPPort = "SCRIBE_SERVER_HTTP_PORT"

	// ScribeModelsPath is the environment variable used to override the models directory
	ScribeModelsPath = "SCRIBE_MODELS_PATH"
)
