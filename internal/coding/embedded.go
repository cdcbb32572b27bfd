package coding

// Embedded terminology corpus. Intentionally small: this is a lookup
// convenience for common clinical-order vocabulary, not a retrieval
// database (spec Non-goal). Unknown terms always fall through to a
// text-only CodeableConcept.

var rxnormEntries = []entry{
	{code: "723", display: "amoxicillin", synonyms: []string{"amoxil"}},
	{code: "6918", display: "lisinopril"},
	{code: "6809", display: "metformin", synonyms: []string{"glucophage"}},
	{code: "5640", display: "ibuprofen", synonyms: []string{"advil", "motrin"}},
	{code: "161", display: "acetaminophen", synonyms: []string{"tylenol", "paracetamol"}},
	{code: "11289", display: "warfarin", synonyms: []string{"coumadin"}},
	{code: "32968", display: "insulin"},
	{code: "3407", display: "heparin"},
	{code: "7646", display: "penicillin"},
	{code: "1596450", display: "atorvastatin", synonyms: []string{"lipitor"}},
	{code: "855288", display: "metoprolol"},
	{code: "197361", display: "furosemide", synonyms: []string{"lasix"}},
	{code: "29046", display: "omeprazole", synonyms: []string{"prilosec"}},
	{code: "35827", display: "sertraline", synonyms: []string{"zoloft"}},
	{code: "83367", display: "albuterol", synonyms: []string{"ventolin", "proventil"}},
}

var loincEntries = []entry{
	{code: "85353-1", display: "vital signs panel"},
	{code: "29463-7", display: "body weight"},
	{code: "8302-2", display: "body height"},
	{code: "8310-5", display: "body temperature"},
	{code: "8867-4", display: "heart rate"},
	{code: "9279-1", display: "respiratory rate"},
	{code: "85354-9", display: "blood pressure panel"},
	{code: "2339-0", display: "glucose"},
	{code: "2093-3", display: "cholesterol, total"},
	{code: "718-7", display: "hemoglobin"},
	{code: "4548-4", display: "hemoglobin a1c"},
	{code: "2160-0", display: "creatinine"},
	{code: "6690-2", display: "white blood cell count", synonyms: []string{"wbc"}},
	{code: "789-8", display: "red blood cell count", synonyms: []string{"rbc"}},
	{code: "777-3", display: "platelet count", synonyms: []string{"platelets"}},
	{code: "2708-6", display: "oxygen saturation", synonyms: []string{"spo2", "o2 sat"}},
}

var snomedEntries = []entry{
	{code: "38341003", display: "hypertension", synonyms: []string{"high blood pressure"}},
	{code: "73211009", display: "diabetes mellitus", synonyms: []string{"diabetes"}},
	{code: "195967001", display: "asthma"},
	{code: "13645005", display: "chronic obstructive pulmonary disease", synonyms: []string{"copd"}},
	{code: "84114007", display: "heart failure"},
	{code: "399068003", display: "malignant tumor"},
	{code: "709044004", display: "chronic kidney disease"},
	{code: "271737000", display: "anemia"},
	{code: "267036007", display: "dyspnea", synonyms: []string{"shortness of breath"}},
	{code: "49727002", display: "cough"},
	{code: "25064002", display: "headache"},
	{code: "29857009", display: "chest pain"},
	{code: "386661006", display: "fever"},
	{code: "422587007", display: "nausea"},
	{code: "91936005", display: "penicillin allergy"},
	{code: "293586001", display: "sulfonamide allergy"},
}

var icd10Entries = []entry{
	{code: "I10", display: "essential hypertension"},
	{code: "E11.9", display: "type 2 diabetes mellitus without complications", synonyms: []string{"type 2 diabetes"}},
	{code: "J45.909", display: "unspecified asthma, uncomplicated", synonyms: []string{"asthma"}},
	{code: "J44.9", display: "chronic obstructive pulmonary disease, unspecified", synonyms: []string{"copd"}},
	{code: "I50.9", display: "heart failure, unspecified"},
	{code: "N18.9", display: "chronic kidney disease, unspecified"},
	{code: "R06.02", display: "shortness of breath"},
	{code: "R05.9", display: "cough, unspecified"},
	{code: "R51.9", display: "headache, unspecified"},
	{code: "R07.9", display: "chest pain, unspecified"},
}

var cvxEntries = []entry{
	{code: "08", display: "hepatitis b, pediatric/adolescent"},
	{code: "10", display: "influenza, whole"},
	{code: "03", display: "mmr"},
	{code: "21", display: "varicella"},
	{code: "141", display: "influenza, seasonal, injectable", synonyms: []string{"flu shot"}},
	{code: "207", display: "covid-19, mrna, spikevax", synonyms: []string{"covid vaccine", "covid-19 vaccine"}},
	{code: "115", display: "tdap"},
	{code: "33", display: "pneumococcal polysaccharide"},
}
