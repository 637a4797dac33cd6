package tables

// Sample naming vocabularies, as configured in the LIMS.

var tissueTypes = map[string]string{
	"X": "Xenograft derived from some tumour. Note: may not necessarily be a mouse xenograft",
	"U": "Unspecified",
	"T": "Unclassifed tumour",
	"S": "Serum from blood where clotting proteins have been removed",
	"R": "Reference or non-tumour, non-diseased tissue sample. Typically used as a donor-specific comparison to a diseased tissue, usually a cancer",
	"P": "Primary tumour",
	"O": "Organoid",
	"n": "Unknown",
	"M": "Metastatic tumour",
	"F": "Fibroblast cells",
	"E": "Endothelial cells",
	"C": "Cell line derived from a tumour",
	"B": "Benign tumour",
	"A": "Cells taken from Ascites fluid",
}

var tissueOrigins = map[string]string{
	"Ab": "Abdomen", "Ad": "Adipose", "Ae": "Adnexa", "Ag": "Adrenal", "An": "Anus",
	"Ao": "Anorectal", "Ap": "Appendix", "As": "Ascites", "At": "Astrocytoma", "Av": "Ampulla",
	"Ax": "Axillary", "Ba": "Back", "Bd": "Bile", "Bi": "Biliary", "Bl": "Bladder",
	"Bm": "Bone", "Bn": "Brain", "Bo": "Bone", "Br": "Breast", "Bu": "Buccal",
	"Bw": "Bowel", "Cb": "Cord", "Cc": "Cecum", "Ce": "Cervix", "Cf": "Cell-Free", "Ch": "Chest",
	"Cj": "Conjunctiva", "Ck": "Cheek", "Cn": "Central", "Co": "Colon", "Cr": "Colorectal",
	"Cs": "Cul-de-sac", "Ct": "Circulating", "Di": "Diaphragm", "Du": "Duodenum",
	"En": "Endometrial", "Ep": "Epidural", "Es": "Esophagus", "Ey": "Eye", "Fa": "Fallopian",
	"Fb": "Fibroid", "Fs": "Foreskin", "Ft": "Foot", "Ga": "Gastric", "Gb": "Gallbladder",
	"Ge": "Gastroesophageal", "Gi": "Gastrointestinal", "Gj": "Gastrojejunal", "Gn": "Gingiva",
	"Gt": "Genital", "Hp": "Hypopharynx", "Hr": "Heart", "Ic": "ileocecum", "Il": "Ileum",
	"Ki": "Kidney", "La": "Lacrimal", "Lb": "Limb", "Le": "Leukocyte", "Lg": "Leg",
	"Li": "Large", "Ln": "Lymph", "Lp": "Lymphoblast", "Lu": "Lung", "Lv": "Liver",
	"Lx": "Larynx", "Ly": "Lymphocyte", "Md": "Mediastinum", "Me": "Mesenchyme", "Mn": "Mandible",
	"Mo": "Mouth", "Ms": "Mesentary", "Mu": "Muscle", "Mx": "Maxilla", "Nk": "Neck",
	"nn": "Unknown", "No": "Nose", "Np": "Nasopharynx", "Oc": "Oral", "Om": "Omentum",
	"Or": "Orbit", "Ov": "Ovary", "Pa": "Pancreas", "Pb": "Peripheral", "Pc": "Pancreatobiliary",
	"Pd": "Parathyroid", "Pe": "Pelvic", "Pg": "Parotid", "Ph": "Paratracheal", "Pi": "Penis",
	"Pl": "Plasma", "Pm": "Peritoneum", "Pn": "Peripheral", "Po": "Peri-aorta", "Pr": "Prostate",
	"Pt": "Palate", "Pu": "Pleura", "Py": "periampullary", "Ra": "Right", "Rc": "Rectosigmoid",
	"Re": "Rectum", "Ri": "Rib", "Rp": "Retroperitoneum", "Sa": "Saliva", "Sb": "Small",
	"Sc": "Scalp", "Se": "Serum", "Sg": "Salivary", "Si": "Small", "Sk": "Skin", "Sm": "Skeletal",
	"Sn": "Spine", "So": "Soft", "Sp": "Spleen", "Sr": "Serosa", "Ss": "Sinus", "St": "Stomach",
	"Su": "Sternum", "Ta": "Tail", "Te": "Testes", "Tg": "Thymic", "Th": "Thymus",
	"Tn": "Tonsil", "To": "Throat", "Tr": "Trachea", "Tu": "Tongue", "Ty": "Thyroid",
	"Uc": "Urachus", "Ue": "Ureter", "Um": "Umbilical", "Up": "Urine", "Ur": "Urethra",
	"Us": "Urine", "Ut": "Uterus", "Uw": "Urine", "Vg": "Vagina", "Vu": "Vulva", "Wm": "Worm",
}

var libraryDesigns = map[string]string{
	"WT": "Whole Transcriptome",
	"WG": "Whole Genome",
	"TS": "Targeted Sequencing",
	"TR": "Total RNA",
	"SW": "Shallow Whole Genome",
	"SM": "smRNA",
	"SC": "Single Cell",
	"NN": "Unknown",
	"MR": "mRNA",
	"EX": "Exome",
	"CT": "ctDNA",
	"CM": "cfMEDIP",
	"CH": "ChIP-Seq",
	"BS": "Bisulphite Sequencing",
	"AS": "ATAC-Seq",
}

// UnrecognizedCode is the glossary definition of a code missing from its vocabulary.
const UnrecognizedCode = "Unrecognized code"
