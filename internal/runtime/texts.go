package runtime

// Texts are the built-in user-facing messages. Empty fields take the defaults.
type Texts struct {
	Failure        string `mapstructure:"failure"`
	Restarted      string `mapstructure:"restarted"`
	LoopGuard      string `mapstructure:"loop_guard"`
	PollRetry      string `mapstructure:"poll_retry"`
	CatalogRetry   string `mapstructure:"catalog_retry"`
	MediaRetry     string `mapstructure:"media_retry"`
	InvalidItem    string `mapstructure:"invalid_item"`
	CartEmpty      string `mapstructure:"cart_empty"`
	SummaryHeader  string `mapstructure:"summary_header"`
	OrderCreated   string `mapstructure:"order_created"`
	Handover       string `mapstructure:"handover"`
	ClaimCreated   string `mapstructure:"claim_created"`
	OutOfStockMark string `mapstructure:"out_of_stock_mark"`
}

func (t Texts) withDefaults() Texts {
	def := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	def(&t.Failure, "Perdón, tuvimos un problema. Probá de nuevo en unos minutos.")
	def(&t.Restarted, "La conversación se reinició porque el menú cambió. Empecemos de nuevo.")
	def(&t.LoopGuard, "Perdón, algo salió mal. Escribí \"menu\" para volver a empezar.")
	def(&t.PollRetry, "No entendí tu respuesta. Respondé con el número de una opción.")
	def(&t.CatalogRetry, "No encontré productos en tu mensaje. Escribí por ejemplo: 2 coca cola")
	def(&t.MediaRetry, "Necesito que me envíes un archivo o una foto.")
	def(&t.InvalidItem, "No pude agregar ese producto. Revisá el nombre y la cantidad.")
	def(&t.CartEmpty, "Tu carrito está vacío.")
	def(&t.SummaryHeader, "Resumen de tu pedido:")
	def(&t.OrderCreated, "¡Listo! Registramos tu pedido {{order_id}}.")
	def(&t.Handover, "Te comunicamos con una persona de nuestro equipo.")
	def(&t.ClaimCreated, "Registramos tu reclamo {{claim_id}}.")
	def(&t.OutOfStockMark, "(sin stock)")
	return t
}
