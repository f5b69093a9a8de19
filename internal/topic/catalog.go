package topic

// Catalog returns the calculus curriculum: every topic the tutor knows
// about, with difficulty ratings and prerequisite edges forming a DAG.
//
// Keywords drive question-to-topic detection and are matched as
// case-insensitive phrases, so more specific topics should carry more
// specific phrases ("chain rule" rather than "rule").
func Catalog() []Topic {
	return []Topic{
		// Pre-calculus: algebra
		{
			ID:          "algebra.basics",
			Name:        "Algebra Basics",
			Description: "Fundamental algebraic operations and expressions",
			Strand:      StrandAlgebra,
			Difficulty:  1,
			Keywords:    []string{"algebra", "simplify", "solve for x"},
		},
		{
			ID:            "algebra.factoring",
			Name:          "Factoring",
			Description:   "Factoring polynomials and algebraic expressions",
			Strand:        StrandAlgebra,
			Difficulty:    2,
			Keywords:      []string{"factor", "factoring", "factorize", "factorise"},
			Prerequisites: []string{"algebra.basics"},
		},
		{
			ID:            "algebra.rational_expressions",
			Name:          "Rational Expressions",
			Description:   "Working with fractions containing polynomials",
			Strand:        StrandAlgebra,
			Difficulty:    2,
			Keywords:      []string{"rational expression", "rational function"},
			Prerequisites: []string{"algebra.factoring"},
		},
		{
			ID:            "algebra.exponents",
			Name:          "Exponent Rules",
			Description:   "Laws of exponents and exponential expressions",
			Strand:        StrandAlgebra,
			Difficulty:    2,
			Keywords:      []string{"exponent", "exponent rules", "power of a power"},
			Prerequisites: []string{"algebra.basics"},
		},

		// Pre-calculus: functions
		{
			ID:            "functions.notation",
			Name:          "Function Notation",
			Description:   "Understanding f(x) notation and function evaluation",
			Strand:        StrandFunctions,
			Difficulty:    1,
			Keywords:      []string{"function notation", "f(x)", "evaluate the function"},
			Prerequisites: []string{"algebra.basics"},
		},
		{
			ID:            "functions.domain_range",
			Name:          "Domain and Range",
			Description:   "Finding domain and range of functions",
			Strand:        StrandFunctions,
			Difficulty:    2,
			Keywords:      []string{"domain", "range"},
			Prerequisites: []string{"functions.notation"},
		},
		{
			ID:            "functions.composition",
			Name:          "Function Composition",
			Description:   "Composing functions: f(g(x))",
			Strand:        StrandFunctions,
			Difficulty:    3,
			Keywords:      []string{"composition", "composite", "f(g(x))", "nested function"},
			Prerequisites: []string{"functions.notation"},
		},
		{
			ID:            "functions.inverse",
			Name:          "Inverse Functions",
			Description:   "Finding and understanding inverse functions",
			Strand:        StrandFunctions,
			Difficulty:    3,
			Keywords:      []string{"inverse function", "invert the function"},
			Prerequisites: []string{"functions.notation"},
		},

		// Pre-calculus: trigonometry
		{
			ID:            "trig.unit_circle",
			Name:          "Unit Circle",
			Description:   "Understanding the unit circle and trigonometric values",
			Strand:        StrandTrig,
			Difficulty:    2,
			Keywords:      []string{"unit circle", "sine", "cosine", "radians"},
			Prerequisites: []string{"algebra.basics"},
		},
		{
			ID:            "trig.identities",
			Name:          "Trigonometric Identities",
			Description:   "Common trig identities and their applications",
			Strand:        StrandTrig,
			Difficulty:    3,
			Keywords:      []string{"trig identity", "trig identities", "pythagorean identity"},
			Prerequisites: []string{"trig.unit_circle"},
		},
		{
			ID:            "trig.inverse",
			Name:          "Inverse Trigonometric Functions",
			Description:   "Arcsin, arccos, arctan and their properties",
			Strand:        StrandTrig,
			Difficulty:    3,
			Keywords:      []string{"arcsin", "arccos", "arctan", "inverse trig"},
			Prerequisites: []string{"trig.unit_circle", "functions.inverse"},
		},

		// Pre-calculus: exponentials & logarithms
		{
			ID:            "exp_log.exponentials",
			Name:          "Exponential Functions",
			Description:   "Properties of exponential functions",
			Strand:        StrandExpLog,
			Difficulty:    2,
			Keywords:      []string{"exponential function", "exponential growth"},
			Prerequisites: []string{"algebra.exponents", "functions.notation"},
		},
		{
			ID:            "exp_log.logarithms",
			Name:          "Logarithms",
			Description:   "Logarithmic functions and their properties",
			Strand:        StrandExpLog,
			Difficulty:    3,
			Keywords:      []string{"logarithm", "log rules", "natural log", "ln("},
			Prerequisites: []string{"exp_log.exponentials", "functions.inverse"},
		},

		// Calculus: limits
		{
			ID:            "limits.introduction",
			Name:          "Introduction to Limits",
			Description:   "Understanding the concept of limits",
			Strand:        StrandLimits,
			Difficulty:    3,
			Keywords:      []string{"limit", "limits", "approaches", "approaching"},
			Prerequisites: []string{"algebra.factoring", "functions.notation"},
		},
		{
			ID:            "limits.techniques",
			Name:          "Limit Techniques",
			Description:   "Direct substitution, factoring, and rationalization",
			Strand:        StrandLimits,
			Difficulty:    3,
			Keywords:      []string{"evaluate the limit", "limit techniques", "rationalize"},
			Prerequisites: []string{"limits.introduction", "algebra.rational_expressions"},
		},
		{
			ID:            "limits.infinity",
			Name:          "Limits at Infinity",
			Description:   "Limits involving infinity",
			Strand:        StrandLimits,
			Difficulty:    4,
			Keywords:      []string{"limit at infinity", "infinity", "asymptote"},
			Prerequisites: []string{"limits.techniques"},
		},
		{
			ID:            "limits.continuity",
			Name:          "Continuity",
			Description:   "Continuous functions and the intermediate value theorem",
			Strand:        StrandLimits,
			Difficulty:    3,
			Keywords:      []string{"continuity", "continuous", "intermediate value theorem"},
			Prerequisites: []string{"limits.introduction"},
		},

		// Calculus: derivatives
		{
			ID:            "derivatives.definition",
			Name:          "Definition of Derivative",
			Description:   "Understanding derivatives as limits",
			Strand:        StrandDerivatives,
			Difficulty:    3,
			Keywords:      []string{"definition of derivative", "difference quotient", "first principles"},
			Prerequisites: []string{"limits.introduction"},
		},
		{
			ID:            "derivatives.basic",
			Name:          "Basic Derivative Rules",
			Description:   "Power rule, constant rule, sum/difference rules",
			Strand:        StrandDerivatives,
			Difficulty:    2,
			Keywords:      []string{"derivative", "differentiate", "differentiation", "rate of change"},
			Prerequisites: []string{"derivatives.definition"},
		},
		{
			ID:            "derivatives.power_rule",
			Name:          "Power Rule",
			Description:   "Derivatives of x^n",
			Strand:        StrandDerivatives,
			Difficulty:    2,
			Keywords:      []string{"power rule"},
			Prerequisites: []string{"derivatives.basic"},
		},
		{
			ID:            "derivatives.product_rule",
			Name:          "Product Rule",
			Description:   "Derivatives of products of functions",
			Strand:        StrandDerivatives,
			Difficulty:    3,
			Keywords:      []string{"product rule"},
			Prerequisites: []string{"derivatives.basic"},
		},
		{
			ID:            "derivatives.quotient_rule",
			Name:          "Quotient Rule",
			Description:   "Derivatives of quotients of functions",
			Strand:        StrandDerivatives,
			Difficulty:    3,
			Keywords:      []string{"quotient rule"},
			Prerequisites: []string{"derivatives.basic"},
		},
		{
			ID:            "derivatives.chain_rule",
			Name:          "Chain Rule",
			Description:   "Derivatives of composite functions",
			Strand:        StrandDerivatives,
			Difficulty:    4,
			Keywords:      []string{"chain rule", "sin(x^2)", "cos(x^2)", "composite function"},
			Prerequisites: []string{"derivatives.basic", "functions.composition"},
		},
		{
			ID:            "derivatives.trig",
			Name:          "Trigonometric Derivatives",
			Description:   "Derivatives of sin, cos, tan, etc.",
			Strand:        StrandDerivatives,
			Difficulty:    3,
			Keywords:      []string{"derivative of sin", "derivative of cos", "derivative of tan"},
			Prerequisites: []string{"derivatives.basic", "trig.unit_circle"},
		},
		{
			ID:            "derivatives.exp_log",
			Name:          "Exponential and Logarithmic Derivatives",
			Description:   "Derivatives of e^x and ln(x)",
			Strand:        StrandDerivatives,
			Difficulty:    3,
			Keywords:      []string{"derivative of e^x", "derivative of ln"},
			Prerequisites: []string{"derivatives.basic", "exp_log.logarithms"},
		},

		// Calculus: applications of derivatives
		{
			ID:            "applications.related_rates",
			Name:          "Related Rates",
			Description:   "Solving related rates problems",
			Strand:        StrandApplications,
			Difficulty:    4,
			Keywords:      []string{"related rates"},
			Prerequisites: []string{"derivatives.chain_rule"},
		},
		{
			ID:            "applications.optimization",
			Name:          "Optimization",
			Description:   "Finding maxima and minima",
			Strand:        StrandApplications,
			Difficulty:    4,
			Keywords:      []string{"optimization", "maximize", "minimize", "maximum", "minimum"},
			Prerequisites: []string{"derivatives.basic"},
		},

		// Calculus: integration
		{
			ID:            "integration.introduction",
			Name:          "Introduction to Integration",
			Description:   "Understanding integrals as antiderivatives",
			Strand:        StrandIntegration,
			Difficulty:    3,
			Keywords:      []string{"integral", "integrate", "integration", "antiderivative"},
			Prerequisites: []string{"derivatives.basic"},
		},
		{
			ID:            "integration.basic",
			Name:          "Basic Integration Rules",
			Description:   "Power rule for integration, constant multiples",
			Strand:        StrandIntegration,
			Difficulty:    3,
			Keywords:      []string{"integration rules", "power rule for integration"},
			Prerequisites: []string{"integration.introduction"},
		},
		{
			ID:            "integration.substitution",
			Name:          "U-Substitution",
			Description:   "Integration by substitution",
			Strand:        StrandIntegration,
			Difficulty:    4,
			Keywords:      []string{"u-substitution", "u substitution", "u sub"},
			Prerequisites: []string{"integration.basic", "derivatives.chain_rule"},
		},
		{
			ID:            "integration.parts",
			Name:          "Integration by Parts",
			Description:   "Using the integration by parts formula",
			Strand:        StrandIntegration,
			Difficulty:    4,
			Keywords:      []string{"integration by parts"},
			Prerequisites: []string{"integration.basic", "derivatives.product_rule"},
		},
		{
			ID:            "integration.trig",
			Name:          "Trigonometric Integration",
			Description:   "Integrals involving trig functions",
			Strand:        StrandIntegration,
			Difficulty:    4,
			Keywords:      []string{"trig integral", "integral of sin", "integral of cos"},
			Prerequisites: []string{"integration.basic", "trig.identities"},
		},
	}
}
