package i18n

var tables = map[Language]map[string]string{
	Spanish: {
		"header.login":         "Iniciar Sesión",
		"header.logout":        "Salir",
		"header.close_session": "Cerrar sesión",

		"login.title":               "Iniciar sesión",
		"login.register_title":      "Registro de usuario",
		"login.email":               "Email",
		"login.password":            "Contraseña",
		"login.register_success":    "¡Registro exitoso! Ahora puedes iniciar sesión",
		"login.login_success":       "¡Login exitoso!",
		"login.invalid_credentials": "Credenciales inválidas",
		"login.registration_error":  "Error al registrarse",
		"login.auth_error":          "Error en la autenticación",
		"login.logged_out":          "Sesión cerrada",

		"input.placeholder":      "Escriba su consulta...",
		"input.send":             "ENVIAR",
		"input.reset":            "REINICIAR",
		"input.confirm_terms":    "Confirme todos los términos resaltados",
		"input.executing_query":  "Ejecutando consulta SQL...",
		"input.extracting_terms": "Extrayendo términos...",
		"input.save_query_login": "Inicia sesión para guardar tu consulta",
		"input.edit_terms":       "Editar términos",
		"input.edit_terms_done":  "Terminar edición",
		"input.overlap":          "La selección se solapa con un término ya resaltado",
		"input.no_terms":         "No se detectaron términos médicos",
		"input.login_required":   "Inicia sesión para generar SQL",

		"examples.title":                   "Ejemplos",
		"examples.female_breast_cancer":    "Encuentra pacientes femeninas con cáncer de mama metastásico que tuvieron mastectomía en el último año",
		"examples.paget_disease":           "Pacientes femeninas diagnosticadas con enfermedad de Paget",
		"examples.adenosquamous_carcinoma": "Pacientes femeninas diagnosticadas con carcinoma adenoescamoso de pulmón",
		"examples.lumpectomy":              "Pacientes diagnosticadas en el cuadrante interior inferior del seno que se sometieron a lumpectomía",

		"history.title":         "Historial de consultas",
		"history.view_history":  "Ver historial",
		"history.login_required": "Inicia sesión para ver historial",
		"history.no_queries":    "No hay consultas en el historial",
		"history.deleted":       "Consulta eliminada",

		"term_validation.title":    "Validar Término",
		"term_validation.cancel":   "Cancelar",
		"term_validation.confirm":  "Confirmar selección",
		"term_validation.loading":  "Cargando...",
		"term_validation.previous": "Anterior",
		"term_validation.next":     "Siguiente",
		"term_validation.of":       "de",
		"term_validation.error":    "Error al obtener términos similares",
		"term_validation.none":     "No se encontraron términos similares",
		"term_validation.select":   "Seleccione al menos un término",

		"sql.original_query":  "Consulta Original",
		"sql.validated_terms": "Términos Validados",
		"sql.generated":       "Consulta SQL Generada",
		"sql.attempts":        "%d intento(s)",
		"sql.executable":      "SQL Ejecutable",
		"sql.not_executable":  "SQL No Ejecutable",
		"sql.invalid":         "SQL con errores de sintaxis",
		"sql.error_details":   "Detalles del error",
		"sql.similar_example": "Ejemplo similar utilizado (score: %.1f%%)",
		"sql.new_query":       "Nueva Consulta",
		"sql.edit_query":      "Editar",
		"sql.check":           "Comprobar SQL",
		"sql.execution_time":  "Tiempo de ejecución: %.3fs",
		"sql.row_count":       "Filas: %d",
		"sql.generate":        "Generar SQL",

		"footer.disclaimer": "Disclaimer: Esta herramienta es una prueba y los resultados pueden no ser correctos",
		"theme.light":       "Cambiar a modo claro",
		"theme.dark":        "Cambiar a modo oscuro",
		"logo.description":  "Clinical Oriented Request Translator for EXecutable SQL",

		"general.loading": "Cargando...",
		"general.error":   "Error",
		"general.success": "Éxito",
		"general.cancel":  "Cancelar",
		"general.confirm": "Confirmar",
		"general.close":   "Cerrar",
	},
	English: {
		"header.login":         "Sign In",
		"header.logout":        "Sign Out",
		"header.close_session": "Sign Out",

		"login.title":               "Sign In",
		"login.register_title":      "User Registration",
		"login.email":               "Email",
		"login.password":            "Password",
		"login.register_success":    "Registration successful! You can now sign in",
		"login.login_success":       "Login successful!",
		"login.invalid_credentials": "Invalid credentials",
		"login.registration_error":  "Registration error",
		"login.auth_error":          "Authentication error",
		"login.logged_out":          "Signed out",

		"input.placeholder":      "Write your query...",
		"input.send":             "SEND",
		"input.reset":            "RESET",
		"input.confirm_terms":    "Confirm all highlighted terms",
		"input.executing_query":  "Executing SQL query...",
		"input.extracting_terms": "Extracting terms...",
		"input.save_query_login": "Sign in to save your query",
		"input.edit_terms":       "Edit terms",
		"input.edit_terms_done":  "Done editing",
		"input.overlap":          "The selection overlaps an already highlighted term",
		"input.no_terms":         "No medical terms were detected",
		"input.login_required":   "Sign in to generate SQL",

		"examples.title":                   "Examples",
		"examples.female_breast_cancer":    "Find female patients with metastatic breast cancer who had mastectomy in the past year",
		"examples.paget_disease":           "Female patients diagnosed with a paget disease",
		"examples.adenosquamous_carcinoma": "Female patients diagnosed with adenosquamous carcinoma of the lung",
		"examples.lumpectomy":              "Patients diagnosed in the lower inner quadrant of breast that went under lumpectomy",

		"history.title":          "Query History",
		"history.view_history":   "View history",
		"history.login_required": "Sign in to view history",
		"history.no_queries":     "No queries in history",
		"history.deleted":        "Query deleted",

		"term_validation.title":    "Validate Term",
		"term_validation.cancel":   "Cancel",
		"term_validation.confirm":  "Confirm Selection",
		"term_validation.loading":  "Loading...",
		"term_validation.previous": "Previous",
		"term_validation.next":     "Next",
		"term_validation.of":       "of",
		"term_validation.error":    "Error fetching similar terms",
		"term_validation.none":     "No similar terms found",
		"term_validation.select":   "Select at least one term",

		"sql.original_query":  "Original Query",
		"sql.validated_terms": "Validated Terms",
		"sql.generated":       "Generated SQL Query",
		"sql.attempts":        "%d attempt(s)",
		"sql.executable":      "Executable SQL",
		"sql.not_executable":  "Non-executable SQL",
		"sql.invalid":         "SQL has syntax errors",
		"sql.error_details":   "Error details",
		"sql.similar_example": "Similar example used (score: %.1f%%)",
		"sql.new_query":       "New Query",
		"sql.edit_query":      "Edit",
		"sql.check":           "Check SQL",
		"sql.execution_time":  "Execution time: %.3fs",
		"sql.row_count":       "Rows: %d",
		"sql.generate":        "Generate SQL",

		"footer.disclaimer": "Disclaimer: This tool is a test and results may not be correct",
		"theme.light":       "Switch to light mode",
		"theme.dark":        "Switch to dark mode",
		"logo.description":  "Clinical Oriented Request Translator for EXecutable SQL",

		"general.loading": "Loading...",
		"general.error":   "Error",
		"general.success": "Success",
		"general.cancel":  "Cancel",
		"general.confirm": "Confirm",
		"general.close":   "Close",
	},
}
